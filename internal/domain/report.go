package domain

import "time"

// CycleReport resume un ciclo completo de scan.
type CycleReport struct {
	ID              string
	StartedAt       time.Time
	Duration        time.Duration
	Markets         int
	Trades          int
	Signals         []AlertSignal
	Rejections      map[string]int // motivo → cantidad
	Notified        int
	NotifyFailures  int
	PersistFailures int
}

// AlertRecord es una alerta emitida, tal como se guarda en el histórico.
type AlertRecord struct {
	ID             string
	TradeID        string
	MarketID       string
	MarketTitle    string
	Side           string
	Wallet         string
	Price          float64
	NotionalUSD    float64
	Classification Classification
	WalletCount    int
	OtherWallets   int
	ClusterUSD     float64
	AlertedAt      time.Time
}
