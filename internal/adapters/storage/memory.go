package storage

import (
	"maps"
	"sync"
	"time"
)

// MemoryStore implementa ports.StateStore sin persistencia.
// Se usa en dry-run y como estado en memoria de JSONStore.
type MemoryStore struct {
	mu        sync.Mutex
	alerted   map[string]time.Time // tradeID → primer aviso
	cooldowns map[string]time.Time // clave → último aviso
}

// NewMemoryStore devuelve un store vacío.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerted:   make(map[string]time.Time),
		cooldowns: make(map[string]time.Time),
	}
}

// HasAlerted devuelve true si el trade ya produjo una alerta.
func (m *MemoryStore) HasAlerted(tradeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.alerted[tradeID]
	return ok
}

// RecordAlert marca el trade como alertado. Idempotente: conserva el primer timestamp.
func (m *MemoryStore) RecordAlert(tradeID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerted[tradeID]; !ok {
		m.alerted[tradeID] = now.UTC()
	}
	return nil
}

// IsCoolingDown devuelve true si la clave avisó hace menos de minInterval.
// Con minInterval <= 0 nunca hay cooldown.
func (m *MemoryStore) IsCoolingDown(key string, now time.Time, minInterval time.Duration) bool {
	if minInterval <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.cooldowns[key]
	if !ok {
		return false
	}
	return now.Sub(last) < minInterval
}

// RecordCooldown registra un aviso para la clave. Un timestamp anterior al
// guardado se ignora.
func (m *MemoryStore) RecordCooldown(key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCooldownLocked(key, now)
	return nil
}

func (m *MemoryStore) recordCooldownLocked(key string, now time.Time) {
	now = now.UTC()
	if last, ok := m.cooldowns[key]; ok && !now.After(last) {
		return
	}
	m.cooldowns[key] = now
}

func (m *MemoryStore) Load() error    { return nil }
func (m *MemoryStore) Persist() error { return nil }
func (m *MemoryStore) Close() error   { return nil }

// Len devuelve cuántos trades y claves de cooldown hay en memoria.
func (m *MemoryStore) Len() (alerted, cooldowns int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerted), len(m.cooldowns)
}

// snapshot copia el estado para serializarlo fuera del lock.
func (m *MemoryStore) snapshot() (alerted, cooldowns map[string]time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.alerted), maps.Clone(m.cooldowns)
}

// replace sustituye el estado completo (usado al cargar).
func (m *MemoryStore) replace(alerted, cooldowns map[string]time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerted = alerted
	m.cooldowns = cooldowns
}

// prune elimina entradas anteriores a cutoff y devuelve cuántas quitó.
func (m *MemoryStore) prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, at := range m.alerted {
		if at.Before(cutoff) {
			delete(m.alerted, id)
			n++
		}
	}
	for key, at := range m.cooldowns {
		if at.Before(cutoff) {
			delete(m.cooldowns, key)
			n++
		}
	}
	return n
}
