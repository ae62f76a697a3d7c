package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"trading-journal/internal/calendar"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

var _ Repository = (*SQLiteStore)(nil)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *SQLiteStore) { s.logger = logger }
}

// NewSQLiteStore creates a new SQLite-based journal store.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, dbError("failed to open database", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:     db,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, dbError("failed to initialize schema", err)
	}

	return store, nil
}

func dbError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrDatabaseError, err)
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Journaled trades; list columns hold JSON arrays
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		instrument TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL,
		take_profit_targets TEXT,
		exit_price REAL,
		position_size REAL NOT NULL,
		outcome TEXT,
		r_multiple REAL,
		pnl REAL,
		trade_date TEXT NOT NULL,
		entry_time TEXT,
		exit_time TEXT,
		emotion_before TEXT,
		emotion_during TEXT,
		emotion_after TEXT,
		rules_followed TEXT,
		setup_type TEXT,
		custom_tags TEXT,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Daily check-ins, one per user and day
	CREATE TABLE IF NOT EXISTS check_ins (
		user_id TEXT NOT NULL,
		check_date TEXT NOT NULL,
		has_traded INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, check_date)
	);

	-- Import history
	CREATE TABLE IF NOT EXISTS imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		path TEXT NOT NULL,
		format TEXT NOT NULL,
		imported INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		imported_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_user_date ON trades(user_id, trade_date);
	CREATE INDEX IF NOT EXISTS idx_trades_user_instrument ON trades(user_id, instrument);
	CREATE INDEX IF NOT EXISTS idx_imports_user ON imports(user_id, imported_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Trades Methods
// ============================================================================

const upsertTrade = `
	INSERT INTO trades (id, user_id, instrument, direction, entry_price, stop_loss, take_profit_targets,
		exit_price, position_size, outcome, r_multiple, pnl, trade_date, entry_time, exit_time,
		emotion_before, emotion_during, emotion_after, rules_followed, setup_type, custom_tags, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		instrument = excluded.instrument,
		direction = excluded.direction,
		entry_price = excluded.entry_price,
		stop_loss = excluded.stop_loss,
		take_profit_targets = excluded.take_profit_targets,
		exit_price = excluded.exit_price,
		position_size = excluded.position_size,
		outcome = excluded.outcome,
		r_multiple = excluded.r_multiple,
		pnl = excluded.pnl,
		trade_date = excluded.trade_date,
		entry_time = excluded.entry_time,
		exit_time = excluded.exit_time,
		emotion_before = excluded.emotion_before,
		emotion_during = excluded.emotion_during,
		emotion_after = excluded.emotion_after,
		rules_followed = excluded.rules_followed,
		setup_type = excluded.setup_type,
		custom_tags = excluded.custom_tags,
		notes = excluded.notes,
		updated_at = CURRENT_TIMESTAMP
	WHERE trades.user_id = excluded.user_id
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveTrade inserts or replaces a trade by ID. A trade ID owned by another user is
// rejected with an invalid record error.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *models.TradeRecord) error {
	if err := saveTrade(ctx, s.db, trade); err != nil {
		return dbError("failed to save trade", err)
	}
	return nil
}

// SaveTrades saves trades in one transaction.
func (s *SQLiteStore) SaveTrades(ctx context.Context, trades []models.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for i := range trades {
		if err := saveTrade(ctx, tx, &trades[i]); err != nil {
			return dbError(fmt.Sprintf("failed to save trade %s", trades[i].ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return dbError("failed to commit transaction", err)
	}
	return nil
}

func saveTrade(ctx context.Context, db execer, t *models.TradeRecord) error {
	if t.ID == "" || t.UserID == "" {
		return apperrors.NewInvalidRecordError(t.ID, "id", "trade id and user id are required")
	}
	targets, err := jsonList(t.TakeProfitTargets)
	if err != nil {
		return err
	}
	rules, err := jsonList(t.RulesFollowed)
	if err != nil {
		return err
	}
	tags, err := jsonList(t.CustomTags)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, upsertTrade,
		t.ID, t.UserID, t.Instrument, string(t.Direction), t.EntryPrice, nullFloat(t.StopLoss), targets,
		nullFloat(t.ExitPrice), t.PositionSize, nullString(t.Outcome), nullFloat(t.RMultiple), nullFloat(t.PnL),
		t.TradeDate.String(), t.EntryTime, t.ExitTime,
		nullString(t.EmotionBefore), nullString(t.EmotionDuring), nullString(t.EmotionAfter),
		rules, nullString(t.SetupType), tags, t.Notes)
	if err != nil {
		return err
	}
	// The upsert leaves rows of other users untouched and reports no change.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewInvalidRecordError(t.ID, "id", "trade id belongs to another user")
	}
	return nil
}

// GetTrades retrieves trades ordered by trade date, oldest first. Trades on the same
// date come back in the order they were first saved.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.TradeRecord, error) {
	start := time.Now()
	query := `SELECT id, user_id, instrument, direction, entry_price, stop_loss, take_profit_targets,
		exit_price, position_size, outcome, r_multiple, pnl, trade_date, entry_time, exit_time,
		emotion_before, emotion_during, emotion_after, rules_followed, setup_type, custom_tags, notes
		FROM trades WHERE 1=1`
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Instrument != "" {
		query += " AND UPPER(TRIM(instrument)) = ?"
		args = append(args, models.NormalizeInstrument(filter.Instrument))
	}
	if !filter.From.IsZero() {
		query += " AND trade_date >= ?"
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		query += " AND trade_date <= ?"
		args = append(args, filter.To.String())
	}
	if filter.ClosedOnly {
		query += " AND outcome IS NOT NULL"
	}

	query += " ORDER BY trade_date DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logging.LogQuery(s.logger, "get_trades", 0, time.Since(start), err)
		return nil, dbError("failed to query trades", err)
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, dbError("failed to scan trade", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating trades", err)
	}

	// Rows come newest first so LIMIT keeps the most recent; hand them back oldest first.
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}

	logging.LogQuery(s.logger, "get_trades", len(trades), time.Since(start), nil)
	return trades, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(row scanner) (models.TradeRecord, error) {
	var (
		t                                   models.TradeRecord
		direction, tradeDate                string
		stop, exit, rMultiple, pnl          sql.NullFloat64
		targets, rules, tags                sql.NullString
		outcome, setup                      sql.NullString
		emotionBefore, emotionDuring, after sql.NullString
		entryTime, exitTime, notes          sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Instrument, &direction, &t.EntryPrice, &stop, &targets,
		&exit, &t.PositionSize, &outcome, &rMultiple, &pnl, &tradeDate, &entryTime, &exitTime,
		&emotionBefore, &emotionDuring, &after, &rules, &setup, &tags, &notes); err != nil {
		return t, err
	}

	date, err := calendar.Parse(tradeDate)
	if err != nil {
		return t, fmt.Errorf("trade %s: %w", t.ID, err)
	}
	t.TradeDate = date
	t.Direction = models.Direction(direction)
	t.StopLoss = floatPtr(stop)
	t.ExitPrice = floatPtr(exit)
	t.RMultiple = floatPtr(rMultiple)
	t.PnL = floatPtr(pnl)
	t.EntryTime = entryTime.String
	t.ExitTime = exitTime.String
	t.Notes = notes.String
	if outcome.Valid {
		t.Outcome = models.OutcomePtr(models.Outcome(outcome.String))
	}
	if setup.Valid {
		t.SetupType = models.String(setup.String)
	}
	t.EmotionBefore = emotionPtr(emotionBefore)
	t.EmotionDuring = emotionPtr(emotionDuring)
	t.EmotionAfter = emotionPtr(after)

	if err := parseList(targets, &t.TakeProfitTargets); err != nil {
		return t, err
	}
	if err := parseList(rules, &t.RulesFollowed); err != nil {
		return t, err
	}
	if err := parseList(tags, &t.CustomTags); err != nil {
		return t, err
	}
	return t, nil
}

// DeleteTrade removes a trade.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return dbError("failed to delete trade", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return dbError("failed to delete trade", err)
	}
	if n == 0 {
		return apperrors.NewDataError("trade", id, "not found", apperrors.ErrDataNotFound)
	}
	return nil
}

// ============================================================================
// Check-in Methods
// ============================================================================

// SaveCheckIn records a check-in, replacing any earlier one for the same day.
func (s *SQLiteStore) SaveCheckIn(ctx context.Context, c *models.CheckInRecord) error {
	if c.UserID == "" || c.CheckDate.IsZero() {
		return apperrors.NewInvalidRecordError(c.UserID, "check_date", "user id and date are required")
	}
	hasTraded := 0
	if c.HasTraded {
		hasTraded = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO check_ins (user_id, check_date, has_traded)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, check_date) DO UPDATE SET has_traded = excluded.has_traded
	`, c.UserID, c.CheckDate.String(), hasTraded)
	if err != nil {
		return dbError("failed to save check-in", err)
	}
	return nil
}

// GetCheckIns retrieves check-ins ordered by date.
func (s *SQLiteStore) GetCheckIns(ctx context.Context, filter CheckInFilter) ([]models.CheckInRecord, error) {
	query := "SELECT user_id, check_date, has_traded FROM check_ins WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if !filter.From.IsZero() {
		query += " AND check_date >= ?"
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		query += " AND check_date <= ?"
		args = append(args, filter.To.String())
	}
	query += " ORDER BY check_date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to query check-ins", err)
	}
	defer rows.Close()

	var checkIns []models.CheckInRecord
	for rows.Next() {
		var c models.CheckInRecord
		var date string
		var hasTraded int
		if err := rows.Scan(&c.UserID, &date, &hasTraded); err != nil {
			return nil, dbError("failed to scan check-in", err)
		}
		if c.CheckDate, err = calendar.Parse(date); err != nil {
			return nil, dbError("failed to parse check-in date", err)
		}
		c.HasTraded = hasTraded == 1
		checkIns = append(checkIns, c)
	}

	return checkIns, rows.Err()
}

// ============================================================================
// Import History Methods
// ============================================================================

// RecordImport appends an entry to the import history.
func (s *SQLiteStore) RecordImport(ctx context.Context, rec ImportRecord) error {
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imports (user_id, path, format, imported, failed, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.UserID, rec.Path, rec.Format, rec.Imported, rec.Failed, rec.ImportedAt.UTC())
	if err != nil {
		return dbError("failed to record import", err)
	}
	return nil
}

// GetImports returns the most recent imports for a user, newest first.
func (s *SQLiteStore) GetImports(ctx context.Context, userID string, limit int) ([]ImportRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, path, format, imported, failed, imported_at
		FROM imports WHERE user_id = ?
		ORDER BY imported_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, dbError("failed to query imports", err)
	}
	defer rows.Close()

	var records []ImportRecord
	for rows.Next() {
		var r ImportRecord
		if err := rows.Scan(&r.UserID, &r.Path, &r.Format, &r.Imported, &r.Failed, &r.ImportedAt); err != nil {
			return nil, dbError("failed to scan import", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ============================================================================
// Column helpers
// ============================================================================

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString[T ~string](v *T) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}

func emotionPtr(v sql.NullString) *models.Emotion {
	if !v.Valid {
		return nil
	}
	return models.EmotionPtr(models.Emotion(v.String))
}

func jsonList[T any](items []T) (sql.NullString, error) {
	if len(items) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func parseList[T any](v sql.NullString, target *[]T) error {
	if !v.Valid || v.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(v.String), target)
}
