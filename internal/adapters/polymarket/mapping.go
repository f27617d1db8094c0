package polymarket

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

// categoryKeywords infiere la categoría cuando Gamma no la trae.
// Se evalúan en este orden; la primera que matchea gana.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"sports", []string{"nfl", "nba", "mlb", "nhl", "soccer", "football", "ufc", "boxing", "tennis", "golf", "f1", "formula 1", "premier league", "champions league", "world cup", "olympics"}},
	{"crypto", []string{"btc", "bitcoin", "eth", "ethereum", "sol", "solana", "xrp", "doge", "crypto", "memecoin", "stablecoin"}},
	{"stocks", []string{"stock", "stocks", "nasdaq", "nyse", "sp500", "s&p", "dow", "earnings", "sec", "ipo"}},
	{"politics", []string{"election", "president", "senate", "house", "congress", "governor", "parliament", "prime minister", "referendum", "vote", "campaign", "poll", "approval"}},
}

// mapGammaMarket convierte un gammaMarket DTO a domain.Market.
// Devuelve false si el mercado no tiene identificador.
func mapGammaMarket(gm gammaMarket) (domain.Market, bool) {
	id := strings.TrimSpace(gm.ConditionID)
	if id == "" {
		id = strings.TrimSpace(gm.ID)
	}
	if id == "" {
		return domain.Market{}, false
	}

	vol := gm.Volume24h
	if !vol.Valid {
		vol = gm.Volume24hr
	}

	m := domain.Market{
		ID:           id,
		Title:        gm.Question,
		Slug:         gm.Slug,
		LiquidityUSD: gm.Liquidity.Value,
		Volume24hUSD: vol.Value,
		Active:       gm.Active && !gm.Closed,
		Category:     strings.ToLower(strings.TrimSpace(gm.Category)),
	}
	if m.Category == "" {
		m.Category = inferCategory(gm.Question, gm.Slug)
	}

	end := gm.EndDateISO
	if end == "" {
		end = gm.EndDate
	}
	if end != "" {
		// Polymarket usa varios formatos; intentamos los más comunes
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, end); err == nil {
				m.EndDate = t.UTC()
				break
			}
		}
	}
	return m, true
}

// inferCategory busca keywords en el título y el slug. Las keywords de una
// palabra matchean palabras completas ("sol" no matchea "resolution").
func inferCategory(title, slug string) string {
	text := strings.ToLower(title + " " + strings.ReplaceAll(slug, "-", " "))
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '&')
	}) {
		words[w] = struct{}{}
	}

	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(text, kw) {
					return c.category
				}
				continue
			}
			if _, ok := words[kw]; ok {
				return c.category
			}
		}
	}
	return ""
}

// mapDataTrade convierte un dataTrade DTO a domain.Trade.
// Devuelve false si el trade no tiene timestamp.
func mapDataTrade(dt dataTrade) (domain.Trade, bool) {
	if !dt.Timestamp.Valid {
		return domain.Trade{}, false
	}
	ts := unixTime(dt.Timestamp.Value)
	wallet := strings.ToLower(strings.TrimSpace(dt.ProxyWallet))

	price := dt.Price.Value
	size := dt.Size.Value
	notional := size
	switch {
	case dt.USDCSize.Valid:
		notional = dt.USDCSize.Value
	case price != 0 && size != 0:
		notional = price * size
	}

	id := strings.TrimSpace(dt.TransactionHash)
	if id == "" && wallet != "" {
		id = fmt.Sprintf("%s-%d", wallet, ts.Unix())
	}

	return domain.Trade{
		ID:          id,
		MarketID:    strings.TrimSpace(dt.ConditionID),
		MarketTitle: dt.Title,
		Side:        parseSide(dt.Outcome, dt.OutcomeIndex),
		Outcome:     strings.TrimSpace(dt.Outcome),
		Wallet:      wallet,
		Price:       price,
		Size:        size,
		NotionalUSD: notional,
		TxHash:      dt.TransactionHash,
		Timestamp:   ts,
	}, true
}

// parseSide usa el texto del outcome si es Yes/No. Un outcome con otra
// etiqueta es categórico (UNKNOWN). Sin texto, cae a outcomeIndex.
func parseSide(outcome string, index json.RawMessage) domain.Side {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "yes":
		return domain.SideYes
	case "no":
		return domain.SideNo
	case "":
	default:
		return domain.SideUnknown
	}

	i, ok := parseOutcomeIndex(index)
	switch {
	case !ok:
		return domain.SideUnknown
	case i == 0:
		return domain.SideYes
	case i == 1:
		return domain.SideNo
	}
	return domain.SideUnknown
}

// parseOutcomeIndex acepta 0, "0" o 0.0. Cualquier otra cosa es inválida.
func parseOutcomeIndex(raw json.RawMessage) (int, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// unixTime convierte segundos (o milisegundos) unix a time.Time UTC.
func unixTime(v float64) time.Time {
	if v > 1e12 {
		v /= 1000
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
