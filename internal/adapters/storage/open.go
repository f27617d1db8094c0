package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/ports"
)

// Backends soportados.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open crea el store según backend. Con backend vacío se deduce de la
// extensión de path (.db / .sqlite → SQLite, resto → JSON).
func Open(backend, path string, retention time.Duration) (ports.StateStore, error) {
	if backend == "" {
		backend = BackendJSON
		if ext := strings.ToLower(path); strings.HasSuffix(ext, ".db") || strings.HasSuffix(ext, ".sqlite") {
			backend = BackendSQLite
		}
	}

	switch backend {
	case BackendJSON:
		return NewJSONStore(path, retention), nil
	case BackendSQLite:
		s, err := NewSQLiteStore(path, retention)
		if err != nil {
			return nil, fmt.Errorf("storage.Open: %w", err)
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage.Open: unknown backend %q", backend)
	}
}
