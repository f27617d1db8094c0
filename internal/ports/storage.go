package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

// StateStore guarda qué trades ya se alertaron y los cooldowns por clave.
// Sobrevive a reinicios del proceso.
type StateStore interface {
	// HasAlerted devuelve true si el trade ya produjo una alerta.
	HasAlerted(tradeID string) bool
	// RecordAlert marca el trade como alertado. El error indica que el estado
	// en memoria se actualizó pero no se pudo persistir.
	RecordAlert(tradeID string, now time.Time) error
	// IsCoolingDown devuelve true si now - último aviso < minInterval.
	IsCoolingDown(key string, now time.Time, minInterval time.Duration) bool
	// RecordCooldown registra un aviso para la clave. Nunca retrocede en el tiempo.
	RecordCooldown(key string, now time.Time) error

	Load() error
	Persist() error
	Close() error
}

// AlertHistory persiste las alertas emitidas para reporting.
type AlertHistory interface {
	SaveAlert(ctx context.Context, signal domain.AlertSignal) error
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.AlertRecord, error)
}
