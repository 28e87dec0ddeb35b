package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vanrent/internal/worker"

	"github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// timeLayout keeps stored timestamps lexically ordered (always UTC).
const timeLayout = "2006-01-02T15:04:05Z"

var (
	// ErrOverlap возвращается, когда интервал пересекается с активной бронью
	ErrOverlap = errors.New("database.reservations: interval overlaps an active reservation")

	// ErrNotFound возвращается, когда бронь не найдена
	ErrNotFound = errors.New("database.reservations: reservation not found")

	// ErrDiscountAlreadyUsed возвращается при повторном использовании промокода клиентом
	ErrDiscountAlreadyUsed = errors.New("database.reservations: discount already used by customer")

	// ErrDiscountLimitReached возвращается, когда лимит использований промокода исчерпан
	ErrDiscountLimitReached = errors.New("database.reservations: discount usage limit reached")

	// ErrInvalidTransition возвращается при недопустимой смене статуса
	ErrInvalidTransition = errors.New("database.reservations: invalid status transition")

	// ErrInvalidInterval возвращается, если конец брони не позже начала
	ErrInvalidInterval = errors.New("database.reservations: end must be after start")

	ErrBuildQuery = errors.New("database: failed to build query")
)

// DB is the reservation store.
type DB struct {
	*sql.DB
	path   string
	sb     squirrel.StatementBuilderType
	retry  worker.RetryPolicy
	logger *zerolog.Logger
}

// NewDB opens (and creates) the SQLite store. Transactions start IMMEDIATE
// so concurrent writers serialize on the overlap check.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	memory := path == ":memory:"
	if !memory {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	if memory {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{
		DB:     db,
		path:   path,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		retry:  worker.RetryPolicy{MaxRetries: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2},
		logger: logger,
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

// SetRetryPolicy overrides the busy-retry policy.
func (db *DB) SetRetryPolicy(p worker.RetryPolicy) {
	db.retry = p
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	queries := []string{
		// Таблица броней
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			office_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			gear_type TEXT NOT NULL DEFAULT 'manual',
			status TEXT NOT NULL DEFAULT 'pending',
			total_price REAL NOT NULL,
			discount_code TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			CHECK (end_at > start_at)
		)`,
		// Выбранные дополнительные опции
		`CREATE TABLE IF NOT EXISTS reservation_addons (
			reservation_id INTEGER NOT NULL,
			addon_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			tier_index INTEGER,
			PRIMARY KEY (reservation_id, addon_id),
			FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE
		)`,
		// Использования промокодов
		`CREATE TABLE IF NOT EXISTS discount_usages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			reservation_id INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (code, customer_id),
			FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_office_window ON reservations(office_id, start_at, end_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_customer ON reservations(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_discount_usages_code ON discount_usages(code)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func isConstraint(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// withBusyRetry runs fn again with exponential backoff while SQLite
// reports the database as busy or locked.
func (db *DB) withBusyRetry(ctx context.Context, op string, fn func() error) error {
	return db.retry.Do(ctx, isBusy, func(attempt int, delay time.Duration, err error) {
		db.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("delay", delay).Msg("database busy, retrying")
	}, fn)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
