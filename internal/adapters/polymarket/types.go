package polymarket

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// flexFloat acepta números JSON, strings numéricos, "" y null.
// Gamma devuelve liquidity/volume a veces como número y a veces como string.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = flexFloat{}
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			*f = flexFloat{}
			return nil
		}
		s = strings.TrimSpace(unq)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Valor basura: se trata como ausente en vez de romper todo el batch.
		*f = flexFloat{}
		return nil
	}
	*f = flexFloat{Value: v, Valid: true}
	return nil
}

// --- Gamma API ---

// gammaMarket es un mercado de GET /markets de Gamma.
type gammaMarket struct {
	ID          string    `json:"id"`
	ConditionID string    `json:"conditionId"`
	Question    string    `json:"question"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	EndDate     string    `json:"endDate"`
	EndDateISO  string    `json:"endDateIso"`
	Liquidity   flexFloat `json:"liquidity"`
	Volume24h   flexFloat `json:"volume24h"`
	Volume24hr  flexFloat `json:"volume24hr"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
}

// --- Data API ---

// dataTrade es un trade de GET /trades de la Data API.
// outcomeIndex llega como número o string según el endpoint.
type dataTrade struct {
	ProxyWallet     string          `json:"proxyWallet"`
	ConditionID     string          `json:"conditionId"`
	Title           string          `json:"title"`
	Side            string          `json:"side"`
	Outcome         string          `json:"outcome"`
	OutcomeIndex    json.RawMessage `json:"outcomeIndex"`
	Price           flexFloat       `json:"price"`
	Size            flexFloat       `json:"size"`
	USDCSize        flexFloat       `json:"usdcSize"`
	Timestamp       flexFloat       `json:"timestamp"`
	TransactionHash string          `json:"transactionHash"`
}
