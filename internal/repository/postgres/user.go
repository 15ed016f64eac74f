package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kinbot/kinbot/internal/models"
	"github.com/kinbot/kinbot/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (chat_id, user_id, username, nickname)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET username = EXCLUDED.username`

	_, err := r.db.ExecContext(ctx, query,
		user.ChatID,
		user.UserID,
		user.Username,
		user.Nickname,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, chatID, userID int64) (*models.User, error) {
	query := `
		SELECT chat_id, user_id, COALESCE(username, ''), nickname,
		       marriage_id, parent_marriage_id, adoption_date
		FROM users
		WHERE chat_id = $1 AND user_id = $2`

	return r.scanUser(r.db.QueryRowContext(ctx, query, chatID, userID))
}

func (r *userRepository) GetByUsername(ctx context.Context, chatID int64, username string) (*models.User, error) {
	query := `
		SELECT chat_id, user_id, COALESCE(username, ''), nickname,
		       marriage_id, parent_marriage_id, adoption_date
		FROM users
		WHERE chat_id = $1 AND username ILIKE $2`

	return r.scanUser(r.db.QueryRowContext(ctx, query, chatID, username))
}

func (r *userRepository) Delete(ctx context.Context, chatID, userID int64) error {
	query := `DELETE FROM users WHERE chat_id = $1 AND user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, chatID, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *userRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ChatID,
		&user.UserID,
		&user.Username,
		&user.Nickname,
		&user.MarriageID,
		&user.ParentMarriageID,
		&user.AdoptionDate,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
