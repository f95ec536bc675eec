package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/raushankrgupta/fitly-tryon/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS try_ons (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	model_image_path   TEXT NOT NULL,
	garment_image_path TEXT NOT NULL,
	category           TEXT NOT NULL,
	status             TEXT NOT NULL,
	request_id         TEXT NOT NULL DEFAULT '',
	result_image_path  TEXT NOT NULL DEFAULT '',
	error_message      TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS try_ons_user_status_created
	ON try_ons (user_id, status, created_at DESC);
`

// PostgresStore keeps try-ons and users in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPostgres connects to dsn and creates the tables when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

// Insert stores a new try-on record, assigning an id when rec has none.
func (s *PostgresStore) Insert(ctx context.Context, rec *models.TryOn) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	query := `
		INSERT INTO try_ons (
			id, user_id, model_image_path, garment_image_path, category, status,
			request_id, result_image_path, error_message, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.ModelImagePath,
		rec.GarmentImagePath,
		rec.Category,
		rec.Status,
		rec.RequestID,
		rec.ResultImagePath,
		rec.ErrorMessage,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert try-on: %w", err)
	}
	return nil
}

// Update applies upd to a record that is still processing.
func (s *PostgresStore) Update(ctx context.Context, id string, upd models.TryOnUpdate) error {
	query, args := buildUpdate(id, upd, s.now())

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update try-on %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update try-on %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update try-on %s: %w", id, ErrNotPending)
	}
	return nil
}

// buildUpdate renders the UPDATE statement for upd. Empty fields are left untouched.
func buildUpdate(id string, upd models.TryOnUpdate, now time.Time) (string, []interface{}) {
	sets := []string{"updated_at = $1"}
	args := []interface{}{now}
	argIndex := 2

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	if upd.Status != "" {
		add("status", string(upd.Status))
	}
	if upd.RequestID != "" {
		add("request_id", upd.RequestID)
	}
	if upd.ResultImagePath != "" {
		add("result_image_path", upd.ResultImagePath)
	}
	if upd.ErrorMessage != "" {
		add("error_message", upd.ErrorMessage)
	}

	query := fmt.Sprintf("UPDATE try_ons SET %s WHERE id = $%d AND status = $%d",
		strings.Join(sets, ", "), argIndex, argIndex+1)
	args = append(args, id, string(models.TryOnStatusProcessing))
	return query, args
}

// ListByUser returns one page of a user's try-ons, newest first, and the total count.
// An empty status lists every record.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, status models.TryOnStatus, page, limit int) ([]models.TryOn, int64, error) {
	_, limit, offset := pageBounds(page, limit)

	where := " WHERE user_id = $1"
	args := []interface{}{userID}
	if status != "" {
		where += " AND status = $2"
		args = append(args, string(status))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM try_ons"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count try-ons: %w", err)
	}

	query := `
		SELECT id, user_id, model_image_path, garment_image_path, category, status,
			request_id, result_image_path, error_message, created_at, updated_at
		FROM try_ons` + where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list try-ons: %w", err)
	}
	defer rows.Close()

	tryOns := []models.TryOn{}
	for rows.Next() {
		var rec models.TryOn
		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.ModelImagePath,
			&rec.GarmentImagePath,
			&rec.Category,
			&rec.Status,
			&rec.RequestID,
			&rec.ResultImagePath,
			&rec.ErrorMessage,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan try-on: %w", err)
		}
		tryOns = append(tryOns, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list try-ons: %w", err)
	}
	return tryOns, total, nil
}

// CreateUser inserts a new account. Emails are stored lower case.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now

	query := `
		INSERT INTO users (id, name, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindUserByEmail looks an account up by email.
func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user models.User
	err := s.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
