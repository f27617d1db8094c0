package domain

import (
	"strings"
	"time"
)

// Side es el lado binario de un trade.
type Side string

const (
	SideYes     Side = "YES"
	SideNo      Side = "NO"
	SideUnknown Side = "UNKNOWN" // mercados categóricos (p.ej. "Spurs")
)

// Trade es un trade inmutable de la Data API. Dos trades con el mismo ID son
// el mismo evento: la fuente puede reenviarlos.
type Trade struct {
	ID          string
	MarketID    string
	MarketTitle string
	Side        Side
	Outcome     string // etiqueta original del outcome
	Wallet      string // en minúsculas
	Price       float64
	Size        float64
	NotionalUSD float64
	TxHash      string
	Timestamp   time.Time
}

// SideKey agrupa trades del mismo lado. Para outcomes categóricos usa la
// etiqueta en minúsculas, así "Spurs" no se mezcla con "Suns".
func (t Trade) SideKey() string {
	if t.Side == SideYes || t.Side == SideNo {
		return string(t.Side)
	}
	if label := strings.ToLower(strings.TrimSpace(t.Outcome)); label != "" {
		return label
	}
	return string(SideUnknown)
}

// SideLabel devuelve la etiqueta a mostrar en la alerta.
func (t Trade) SideLabel() string {
	if t.Side == SideYes || t.Side == SideNo {
		return string(t.Side)
	}
	if t.Outcome != "" {
		return t.Outcome
	}
	return string(SideUnknown)
}

// Valid indica si el trade trae los campos mínimos para evaluarlo.
func (t Trade) Valid() bool {
	return t.ID != "" && t.MarketID != "" && t.Wallet != ""
}

// ShortWallet devuelve 0x1234...abcd.
func ShortWallet(w string) string {
	if len(w) <= 12 {
		return w
	}
	return w[:6] + "..." + w[len(w)-4:]
}
