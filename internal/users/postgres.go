package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/yourusername/auth-forge/internal/users/migrations"
)

// PostgresStore は PostgreSQL 上の users テーブルを操作する Store 実装です。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunMigrations は埋め込みマイグレーションを適用します。
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// FindByUserID は userId でユーザーを検索します。
func (s *PostgresStore) FindByUserID(ctx context.Context, userID string) (*User, error) {
	query :=
		`SELECT id, user_id, password_hash, is_logged_in, created_at FROM users
		 WHERE user_id = $1
		 `

	user := &User{}
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&user.ID, &user.UserID, &user.PasswordHash, &user.IsLoggedIn, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Create は新規ユーザーを作成します。
// 重複判定は事前読み取りではなく一意制約違反で行います。
func (s *PostgresStore) Create(ctx context.Context, user *User) (*User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, user_id, password_hash, is_logged_in)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.UserID, user.PasswordHash, user.IsLoggedIn).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Save はログイン状態を永続化します。
func (s *PostgresStore) Save(ctx context.Context, user *User) error {
	query :=
		`UPDATE users SET is_logged_in = $2
		 WHERE user_id = $1
		 `

	result, err := s.db.ExecContext(ctx, query, user.UserID, user.IsLoggedIn)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetLoggedIn は未ログインの場合のみログイン状態へ更新します。
// チェックと更新がDB側で単一文になるため、同一ユーザーへの同時ログインは片方だけが成功します。
func (s *PostgresStore) SetLoggedIn(ctx context.Context, userID string) (bool, error) {
	query :=
		`UPDATE users SET is_logged_in = TRUE
		 WHERE user_id = $1 AND is_logged_in = FALSE
		 `

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return affected > 0, nil
}
