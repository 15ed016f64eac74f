package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kinbot/kinbot/internal/repository"
)

type chatRepository struct {
	db *sql.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *sql.DB) repository.ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Add(ctx context.Context, chatID int64) error {
	query := `
		INSERT INTO chats (chat_id)
		VALUES ($1)
		ON CONFLICT (chat_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, chatID); err != nil {
		return fmt.Errorf("failed to add chat: %w", err)
	}
	return nil
}

func (r *chatRepository) Forget(ctx context.Context, chatID int64) error {
	// Users and marriages go with the chat via ON DELETE CASCADE.
	query := `DELETE FROM chats WHERE chat_id = $1`

	if _, err := r.db.ExecContext(ctx, query, chatID); err != nil {
		return fmt.Errorf("failed to forget chat: %w", err)
	}
	return nil
}
