package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/studypal/server/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		pass_hash BLOB NOT NULL,
		phone TEXT,
		grade TEXT,
		is_premium INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(email);

	CREATE TABLE IF NOT EXISTS answered_questions (
		user_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		answered_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, question_id)
	);

	CREATE TABLE IF NOT EXISTS payment_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		qr_code_url TEXT NOT NULL,
		price REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payment_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		transaction_number TEXT NOT NULL,
		amount REAL NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payment_tx_user ON payment_transactions(user_id);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetProfile retrieves a profile by user ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT user_id, email, pass_hash, phone, grade, is_premium, created_at, updated_at
		FROM profiles WHERE user_id = ?`
	return s.scanProfile(s.db.QueryRowContext(ctx, query, userID))
}

// GetProfileByEmail retrieves a profile by email.
func (s *SQLiteStore) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `
		SELECT user_id, email, pass_hash, phone, grade, is_premium, created_at, updated_at
		FROM profiles WHERE email = ?`
	return s.scanProfile(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanProfile(row *sql.Row) (*domain.Profile, error) {
	var p domain.Profile
	var phone, grade sql.NullString
	var premium int
	var createdAt, updatedAt int64

	err := row.Scan(
		&p.ID, &p.Email, &p.PassHash, &phone, &grade,
		&premium, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	p.Phone = phone.String
	p.Grade = grade.String
	p.IsPremium = premium != 0
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	return &p, nil
}

// CreateProfile inserts a new profile record.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p *domain.Profile) error {
	query := `
	INSERT INTO profiles (user_id, email, pass_hash, phone, grade, is_premium, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	premium := 0
	if p.IsPremium {
		premium = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Email, p.PassHash, nullable(p.Phone), nullable(p.Grade),
		premium, p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// UpdateProfile updates the mutable profile fields.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID, phone, grade string) error {
	query := `UPDATE profiles SET phone = ?, grade = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, nullable(phone), nullable(grade), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("profile not found")
	}
	return nil
}

// SetPremium updates the premium entitlement flag for a user.
func (s *SQLiteStore) SetPremium(ctx context.Context, userID string, premium bool) error {
	val := 0
	if premium {
		val = 1
	}
	query := `UPDATE profiles SET is_premium = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, val, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update premium flag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("profile not found")
	}
	return nil
}

// WasAnswered reports whether a free-tier generation was already consumed.
func (s *SQLiteStore) WasAnswered(ctx context.Context, userID, questionID string) (bool, error) {
	query := `SELECT 1 FROM answered_questions WHERE user_id = ? AND question_id = ?`
	var one int
	err := s.db.QueryRowContext(ctx, query, userID, questionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query answered flag: %w", err)
	}
	return true, nil
}

// MarkAnswered records a consumed free-tier generation.
func (s *SQLiteStore) MarkAnswered(ctx context.Context, userID, questionID string) error {
	query := `
	INSERT INTO answered_questions (user_id, question_id, answered_at)
	VALUES (?, ?, ?)
	ON CONFLICT(user_id, question_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, userID, questionID, time.Now().Unix()); err != nil {
		return fmt.Errorf("mark answered: %w", err)
	}
	return nil
}

// ClearAnswered drops all free-tier quota records for a user.
func (s *SQLiteStore) ClearAnswered(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM answered_questions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear answered set: %w", err)
	}
	return nil
}

// GetPaymentSettings returns the current payment settings.
func (s *SQLiteStore) GetPaymentSettings(ctx context.Context) (*domain.PaymentSettings, error) {
	query := `SELECT qr_code_url, price FROM payment_settings WHERE id = 1`
	var ps domain.PaymentSettings
	err := s.db.QueryRowContext(ctx, query).Scan(&ps.QRCodeURL, &ps.Price)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment settings: %w", err)
	}
	return &ps, nil
}

// EnsurePaymentSettings inserts payment settings if none exist yet.
func (s *SQLiteStore) EnsurePaymentSettings(ctx context.Context, qrCodeURL string, price float64) error {
	query := `
	INSERT INTO payment_settings (id, qr_code_url, price)
	VALUES (1, ?, ?)
	ON CONFLICT(id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, qrCodeURL, price); err != nil {
		return fmt.Errorf("ensure payment settings: %w", err)
	}
	return nil
}

// InsertPaymentTransaction records a user-submitted payment.
func (s *SQLiteStore) InsertPaymentTransaction(ctx context.Context, tx *domain.PaymentTransaction) error {
	query := `
	INSERT INTO payment_transactions (id, user_id, transaction_number, amount, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.TransactionNumber, tx.Amount, tx.Status, tx.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert payment transaction: %w", err)
	}
	return nil
}

// AddChatMessage appends a message to a user's chat history.
func (s *SQLiteStore) AddChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
	INSERT INTO chat_messages (id, user_id, role, content, created_at)
	VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.UserID, msg.Role, msg.Content, msg.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// RecentChatMessages returns up to limit most recent messages, oldest first.
func (s *SQLiteStore) RecentChatMessages(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	query := `
	SELECT id, user_id, role, content, created_at
	FROM (
		SELECT id, user_id, role, content, created_at
		FROM chat_messages WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return msgs, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
