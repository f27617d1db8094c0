package domain

import "time"

// Classification distingue una alerta de una sola wallet de una de cluster.
type Classification string

const (
	ClassSingle  Classification = "single"
	ClassCluster Classification = "cluster"
)

// ClusterContext resume la actividad del mismo lado en la ventana de lookback.
// Se recalcula en cada scan y nunca se persiste.
type ClusterContext struct {
	MarketID     string
	SideKey      string
	WalletCount  int     // wallets distintas en la ventana
	OtherWallets int     // wallets distintas sin contar la que dispara
	NotionalUSD  float64 // suma de todos los trades filtrados
	Lookback     time.Duration
}

// AlertSignal es una alerta lista para el notificador.
type AlertSignal struct {
	Trade          Trade
	Market         Market
	Cluster        *ClusterContext // nil si el clustering está desactivado
	Classification Classification
	DetectedAt     time.Time
}

// IsCluster devuelve true si la señal es de cluster.
func (s AlertSignal) IsCluster() bool {
	return s.Classification == ClassCluster
}

// Link devuelve el link de la alerta: perfil para single, mercado para cluster.
func (s AlertSignal) Link() string {
	if s.IsCluster() {
		return s.Market.URL()
	}
	return ProfileURL(s.Trade.Wallet)
}
