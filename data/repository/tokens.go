package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"events-calendar/data/models"

	"github.com/google/uuid"
)

func newTokenKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IssueOrReuseToken returns the user's token, minting one on first use.
// Concurrent callers converge on the same row through the user_id unique
// constraint.
func (sr *SqlRepo) IssueOrReuseToken(ctx context.Context, userID int64) (models.Token, error) {
	_, err := sr.DB.ExecContext(ctx,
		"INSERT INTO auth_tokens (key, user_id) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING",
		newTokenKey(), userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Token{}, fmt.Errorf("token for user %d: %w", userID, ErrNotFound)
		}
		return models.Token{}, fmt.Errorf("error issuing token: %w", err)
	}

	var t models.Token
	row := sr.DB.QueryRowContext(ctx, "SELECT key, user_id, created FROM auth_tokens WHERE user_id = $1", userID)
	if err := row.Scan(&t.Key, &t.UserID, &t.Created); err != nil {
		return models.Token{}, fmt.Errorf("error reading token: %w", err)
	}
	return t, nil
}

// UserByToken resolves a bearer token to its active owner.
func (sr *SqlRepo) UserByToken(ctx context.Context, key string) (models.User, error) {
	if key == "" {
		return models.User{}, ErrUnauthenticated
	}

	var u models.User
	query := fmt.Sprintf(`SELECT %s FROM users u
		JOIN auth_tokens t ON t.user_id = u.id
		WHERE t.key = $1 AND u.is_active`, models.SelectColumns(u, "u"))
	row := sr.DB.QueryRowContext(ctx, query, key)
	if err := models.ScanRowToModel(&u, row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUnauthenticated
		}
		return models.User{}, err
	}
	return u, nil
}
