package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-assistant/internal/user"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

const selectColumns = `id, username, password_hash, telegram_chat_id, created_at, updated_at`

func NewPostgresRepo(db *sqlx.DB) user.RepositoryAPI {
	return &pgRepo{db: db}
}

type pgRepo struct {
	db *sqlx.DB
}

func (p *pgRepo) Create(ctx context.Context, u *userDatamodel.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	query := p.db.Rebind(`
INSERT INTO users (username, password_hash, telegram_chat_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`)
	err := p.db.QueryRowxContext(ctx, query, u.Username, u.PasswordHash, u.ChatID, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (p *pgRepo) GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error) {
	return p.getOne(ctx, "username", username)
}

func (p *pgRepo) GetByChatID(ctx context.Context, chatID string) (*userDatamodel.User, error) {
	return p.getOne(ctx, "telegram_chat_id", chatID)
}

func (p *pgRepo) getOne(ctx context.Context, column, value string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	query := p.db.Rebind(`SELECT ` + selectColumns + ` FROM users WHERE ` + column + ` = ?`)
	if err := p.db.GetContext(ctx, &u, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
