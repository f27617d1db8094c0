package domain

import (
	"fmt"
	"strings"
	"time"
)

const polymarketWebBase = "https://polymarket.com"

// Market es el snapshot de un mercado de Polymarket en el ciclo actual.
// Se refresca en cada scan y no se persiste.
type Market struct {
	ID           string // conditionId (o id de Gamma si falta)
	Title        string
	Category     string // en minúsculas
	Slug         string
	LiquidityUSD float64
	Volume24hUSD float64
	EndDate      time.Time
	Active       bool
}

// URL devuelve el link público del mercado, o "" si no hay slug.
func (m Market) URL() string {
	if m.Slug == "" {
		return ""
	}
	return fmt.Sprintf("%s/market/%s", polymarketWebBase, m.Slug)
}

// ProfileURL devuelve el perfil público de una wallet.
func ProfileURL(wallet string) string {
	return fmt.Sprintf("%s/profile/%s", polymarketWebBase, wallet)
}

// TruncateTitle devuelve el título truncado a maxLen runes.
// Si está vacío usa los primeros caracteres del id como fallback.
func TruncateTitle(title, id string, maxLen int) string {
	q := strings.TrimSpace(title)
	if q == "" {
		if len(id) > 20 {
			q = id[:20] + "..."
		} else {
			q = id
		}
	}
	if r := []rune(q); len(r) > maxLen {
		q = string(r[:maxLen-3]) + "..."
	}
	return q
}
