package storage

// sqlite.go: estado de dedupe, cooldowns e histórico de alertas en SQLite.
//
// Estrategia:
//   - `alerted_trades`: una fila por trade alertado (INSERT OR IGNORE).
//   - `cooldowns`: una fila por clave, upsert con el último aviso.
//   - `alerts`: histórico de señales emitidas, para `-history`.
//   - Cache en memoria: HasAlerted / IsCoolingDown no tocan disco.
//   - Prune al cargar si hay retención configurada.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS alerted_trades (
    trade_id   TEXT PRIMARY KEY,
    alerted_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cooldowns (
    key           TEXT PRIMARY KEY,
    last_alert_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
    id             TEXT PRIMARY KEY,
    trade_id       TEXT NOT NULL,
    market_id      TEXT NOT NULL,
    market_title   TEXT,
    side           TEXT NOT NULL,
    wallet         TEXT NOT NULL,
    price          REAL NOT NULL DEFAULT 0,
    notional_usd   REAL NOT NULL DEFAULT 0,
    classification TEXT NOT NULL,
    wallet_count   INTEGER NOT NULL DEFAULT 0,
    other_wallets  INTEGER NOT NULL DEFAULT 0,
    cluster_usd    REAL NOT NULL DEFAULT 0,
    alerted_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerted_at ON alerted_trades(alerted_at);
CREATE INDEX IF NOT EXISTS idx_alerts_at  ON alerts(alerted_at DESC);
`

// tsLayout tiene ancho fijo para que el orden lexicográfico sea cronológico.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

// SQLiteStore implementa ports.StateStore y ports.AlertHistory sobre SQLite
// (pure Go, sin CGo).
type SQLiteStore struct {
	db        *sql.DB
	retention time.Duration
	mem       *MemoryStore
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el schema.
// El estado se carga con Load.
func NewSQLiteStore(path string, retention time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	return &SQLiteStore{
		db:        db,
		retention: retention,
		mem:       NewMemoryStore(),
	}, nil
}

func (s *SQLiteStore) HasAlerted(tradeID string) bool {
	return s.mem.HasAlerted(tradeID)
}

// RecordAlert actualiza la cache y escribe la fila. Si la escritura falla la
// cache ya está actualizada.
func (s *SQLiteStore) RecordAlert(tradeID string, now time.Time) error {
	if s.mem.HasAlerted(tradeID) {
		return nil
	}
	_ = s.mem.RecordAlert(tradeID, now)
	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO alerted_trades (trade_id, alerted_at) VALUES (?, ?)`,
		tradeID, formatTS(now),
	); err != nil {
		return fmt.Errorf("storage.RecordAlert: insert %s: %w", tradeID, err)
	}
	return nil
}

func (s *SQLiteStore) IsCoolingDown(key string, now time.Time, minInterval time.Duration) bool {
	return s.mem.IsCoolingDown(key, now, minInterval)
}

// RecordCooldown hace upsert de la clave. MAX() mantiene el timestamp
// monótono también en disco.
func (s *SQLiteStore) RecordCooldown(key string, now time.Time) error {
	_ = s.mem.RecordCooldown(key, now)
	if _, err := s.db.Exec(`
		INSERT INTO cooldowns (key, last_alert_at) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			last_alert_at = MAX(last_alert_at, excluded.last_alert_at)
	`, key, formatTS(now)); err != nil {
		return fmt.Errorf("storage.RecordCooldown: upsert %s: %w", key, err)
	}
	return nil
}

// Load poda entradas antiguas (si hay retención) y precarga la cache.
func (s *SQLiteStore) Load() error {
	ctx := context.Background()
	if s.retention > 0 {
		s.pruneOld(ctx, time.Now().Add(-s.retention))
	}

	alerted := make(map[string]time.Time)
	rows, err := s.db.QueryContext(ctx, `SELECT trade_id, alerted_at FROM alerted_trades`)
	if err != nil {
		return fmt.Errorf("storage.Load: query alerted: %w", err)
	}
	for rows.Next() {
		var id, at string
		if err := rows.Scan(&id, &at); err != nil {
			rows.Close()
			return fmt.Errorf("storage.Load: scan alerted: %w", err)
		}
		alerted[id] = parseTS(at)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("storage.Load: alerted rows: %w", err)
	}

	cooldowns := make(map[string]time.Time)
	rows, err = s.db.QueryContext(ctx, `SELECT key, last_alert_at FROM cooldowns`)
	if err != nil {
		return fmt.Errorf("storage.Load: query cooldowns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, at string
		if err := rows.Scan(&key, &at); err != nil {
			return fmt.Errorf("storage.Load: scan cooldown: %w", err)
		}
		cooldowns[key] = parseTS(at)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("storage.Load: cooldown rows: %w", err)
	}

	s.mem.replace(alerted, cooldowns)
	slog.Debug("state loaded", "backend", "sqlite", "alerted", len(alerted), "cooldowns", len(cooldowns))
	return nil
}

// Len devuelve cuántos trades y claves de cooldown hay cargados.
func (s *SQLiteStore) Len() (alerted, cooldowns int) {
	return s.mem.Len()
}

// Persist no hace nada: cada mutación ya se escribió.
func (s *SQLiteStore) Persist() error { return nil }

// SaveAlert guarda la señal en el histórico.
func (s *SQLiteStore) SaveAlert(ctx context.Context, signal domain.AlertSignal) error {
	var walletCount, others int
	var clusterUSD float64
	if signal.Cluster != nil {
		walletCount = signal.Cluster.WalletCount
		others = signal.Cluster.OtherWallets
		clusterUSD = signal.Cluster.NotionalUSD
	}
	at := signal.DetectedAt
	if at.IsZero() {
		at = time.Now()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts
			(id, trade_id, market_id, market_title, side, wallet, price, notional_usd,
			 classification, wallet_count, other_wallets, cluster_usd, alerted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		signal.Trade.ID,
		signal.Market.ID,
		signal.Market.Title,
		signal.Trade.SideLabel(),
		signal.Trade.Wallet,
		signal.Trade.Price,
		signal.Trade.NotionalUSD,
		string(signal.Classification),
		walletCount,
		others,
		clusterUSD,
		formatTS(at),
	); err != nil {
		return fmt.Errorf("storage.SaveAlert: insert %s: %w", signal.Trade.ID, err)
	}
	return nil
}

// GetHistory devuelve las alertas emitidas en el rango dado, las más recientes primero.
func (s *SQLiteStore) GetHistory(ctx context.Context, from, to time.Time) ([]domain.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trade_id, market_id, market_title, side, wallet, price, notional_usd,
		       classification, wallet_count, other_wallets, cluster_usd, alerted_at
		FROM alerts
		WHERE alerted_at BETWEEN ? AND ?
		ORDER BY alerted_at DESC
	`, formatTS(from), formatTS(to))
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var records []domain.AlertRecord
	for rows.Next() {
		var r domain.AlertRecord
		var title sql.NullString
		var class, at string
		if err := rows.Scan(
			&r.ID, &r.TradeID, &r.MarketID, &title, &r.Side, &r.Wallet,
			&r.Price, &r.NotionalUSD, &class, &r.WalletCount, &r.OtherWallets,
			&r.ClusterUSD, &at,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}
		r.MarketTitle = title.String
		r.Classification = domain.Classification(class)
		r.AlertedAt = parseTS(at)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// pruneOld elimina estado más antiguo que cutoff. El histórico de alertas se conserva.
func (s *SQLiteStore) pruneOld(ctx context.Context, cutoff time.Time) {
	c := formatTS(cutoff)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alerted_trades WHERE alerted_at < ?`, c); err != nil {
		slog.Warn("prune alerted_trades failed", "err", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cooldowns WHERE last_alert_at < ?`, c); err != nil {
		slog.Warn("prune cooldowns failed", "err", err)
	}
}
