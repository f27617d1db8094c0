package ports

import (
	"context"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

// Notifier entrega una alerta al canal de salida.
// Un error nunca es fatal: el scanner lo loguea y sigue.
type Notifier interface {
	Notify(ctx context.Context, signal domain.AlertSignal) error
}

// CycleReporter recibe el resumen de cada ciclo (opcional).
type CycleReporter interface {
	ReportCycle(ctx context.Context, report domain.CycleReport) error
}
