package storage

// jsonfile.go: estado de dedupe y cooldowns en un archivo JSON.
//
// Cada mutación reescribe el archivo completo: se escribe a un temporal en el
// mismo directorio, fsync y rename. Un lector nunca ve un archivo a medias.
// El archivo es pequeño (IDs + claves), así que reescribirlo es barato.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const stateVersion = 1

// stateFile es el formato en disco.
type stateFile struct {
	Version   int                  `json:"version"`
	Alerted   map[string]time.Time `json:"alerted"`
	Cooldowns map[string]time.Time `json:"cooldowns"`
	// Formato antiguo: solo una lista de IDs.
	ProcessedTradeIDs []string `json:"processed_trade_ids,omitempty"`
}

// JSONStore implementa ports.StateStore sobre un archivo JSON.
type JSONStore struct {
	path      string
	retention time.Duration // 0 = sin límite
	mem       *MemoryStore
	writeMu   sync.Mutex
}

// NewJSONStore crea el store. No toca disco hasta Load.
func NewJSONStore(path string, retention time.Duration) *JSONStore {
	return &JSONStore{
		path:      path,
		retention: retention,
		mem:       NewMemoryStore(),
	}
}

// Path devuelve la ruta del archivo de estado.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) HasAlerted(tradeID string) bool {
	return s.mem.HasAlerted(tradeID)
}

// RecordAlert actualiza la memoria y persiste. Si la persistencia falla el
// estado en memoria ya está actualizado y el error se devuelve igual.
func (s *JSONStore) RecordAlert(tradeID string, now time.Time) error {
	if s.mem.HasAlerted(tradeID) {
		return nil
	}
	_ = s.mem.RecordAlert(tradeID, now)
	if err := s.Persist(); err != nil {
		return fmt.Errorf("storage.RecordAlert: %w", err)
	}
	return nil
}

func (s *JSONStore) IsCoolingDown(key string, now time.Time, minInterval time.Duration) bool {
	return s.mem.IsCoolingDown(key, now, minInterval)
}

func (s *JSONStore) RecordCooldown(key string, now time.Time) error {
	_ = s.mem.RecordCooldown(key, now)
	if err := s.Persist(); err != nil {
		return fmt.Errorf("storage.RecordCooldown: %w", err)
	}
	return nil
}

// Load lee el archivo. Un archivo inexistente o vacío es un estado vacío.
// Un archivo corrupto es un error: arrancar vacío podría reenviar alertas.
func (s *JSONStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.mem.replace(make(map[string]time.Time), make(map[string]time.Time))
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage.Load: read %q: %w", s.path, err)
	}

	var sf stateFile
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &sf); err != nil {
			return fmt.Errorf("storage.Load: decode %q: %w", s.path, err)
		}
	}

	now := time.Now().UTC()
	alerted := make(map[string]time.Time, len(sf.Alerted)+len(sf.ProcessedTradeIDs))
	for id, at := range sf.Alerted {
		alerted[id] = at.UTC()
	}
	for _, id := range sf.ProcessedTradeIDs {
		if _, ok := alerted[id]; !ok && id != "" {
			alerted[id] = now
		}
	}
	cooldowns := make(map[string]time.Time, len(sf.Cooldowns))
	for key, at := range sf.Cooldowns {
		cooldowns[key] = at.UTC()
	}
	s.mem.replace(alerted, cooldowns)

	if s.retention > 0 {
		if n := s.mem.prune(now.Add(-s.retention)); n > 0 {
			slog.Info("pruned old dedupe state", "path", s.path, "entries", n)
			if err := s.Persist(); err != nil {
				return fmt.Errorf("storage.Load: %w", err)
			}
		}
	}

	a, c := s.mem.Len()
	slog.Debug("state loaded", "path", s.path, "alerted", a, "cooldowns", c)
	return nil
}

// Len devuelve cuántos trades y claves de cooldown hay cargados.
func (s *JSONStore) Len() (alerted, cooldowns int) {
	return s.mem.Len()
}

// Persist escribe el estado completo de forma atómica.
func (s *JSONStore) Persist() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	alerted, cooldowns := s.mem.snapshot()
	data, err := json.MarshalIndent(stateFile{
		Version:   stateVersion,
		Alerted:   alerted,
		Cooldowns: cooldowns,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.Persist: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage.Persist: mkdir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage.Persist: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op tras el rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.Persist: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.Persist: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage.Persist: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("storage.Persist: rename to %q: %w", s.path, err)
	}
	return nil
}

// Close no hace nada: cada mutación ya quedó en disco.
func (s *JSONStore) Close() error { return nil }
