package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kinbot/kinbot/internal/models"
	"github.com/kinbot/kinbot/internal/repository"
)

type marriageRepository struct {
	db *sql.DB
}

// NewMarriageRepository creates a new marriage repository
func NewMarriageRepository(db *sql.DB) repository.MarriageRepository {
	return &marriageRepository{db: db}
}

func (r *marriageRepository) Create(ctx context.Context, chatID, userA, userB int64) (*models.MarriageResult, error) {
	if userA == userB {
		return nil, fmt.Errorf("a marriage requires two distinct users, got %d twice", userA)
	}
	users := []int64{userA, userB}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Report which of the two is already taken, for the user-facing reason.
	rows, err := tx.QueryContext(ctx, `
		SELECT user_id
		FROM users
		WHERE chat_id = $1
		AND user_id = ANY($2::bigint[])
		AND marriage_id IS NOT NULL`,
		chatID, pq.Array(users),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing marriages: %w", err)
	}
	var taken []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan married user: %w", err)
		}
		taken = append(taken, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to check existing marriages: %w", err)
	}
	if len(taken) > 0 {
		return &models.MarriageResult{AlreadyMarried: taken}, nil
	}

	// Create the marriage and link both spouses in one statement. The
	// marriage_id IS NULL guard closes the race with a concurrent proposal:
	// whichever transaction commits second links fewer than two users and
	// rolls back here.
	var marriageID int64
	linked := 0
	linkRows, err := tx.QueryContext(ctx, `
		WITH new_marriage AS (
			INSERT INTO marriages (chat_id, date)
			VALUES ($1, NOW())
			RETURNING id
		)
		UPDATE users
		SET marriage_id = (SELECT id FROM new_marriage)
		WHERE chat_id = $1
		AND user_id = ANY($2::bigint[])
		AND marriage_id IS NULL
		RETURNING marriage_id`,
		chatID, pq.Array(users),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create marriage: %w", err)
	}
	for linkRows.Next() {
		if err := linkRows.Scan(&marriageID); err != nil {
			linkRows.Close()
			return nil, fmt.Errorf("failed to scan created marriage: %w", err)
		}
		linked++
	}
	linkRows.Close()
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to create marriage: %w", err)
	}

	if linked != 2 {
		// One of the users vanished or got married concurrently.
		return &models.MarriageResult{AlreadyMarried: users}, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit marriage: %w", err)
	}
	return &models.MarriageResult{MarriageID: marriageID}, nil
}

func (r *marriageRepository) Dissolve(ctx context.Context, chatID, marriageID int64) (*models.Dissolution, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	d, err := r.dissolveInTx(ctx, tx, chatID, marriageID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dissolution: %w", err)
	}
	return d, nil
}

func (r *marriageRepository) DissolveByUser(ctx context.Context, chatID, userID int64) (*models.Dissolution, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var marriageID sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT marriage_id
		FROM users
		WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID,
	).Scan(&marriageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user marriage: %w", err)
	}
	if !marriageID.Valid {
		return nil, nil
	}

	d, err := r.dissolveInTx(ctx, tx, chatID, marriageID.Int64)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dissolution: %w", err)
	}
	return d, nil
}

// dissolveInTx deletes one marriage and unlinks everyone attached to it.
// Returns nil when the marriage does not exist (already dissolved).
func (r *marriageRepository) dissolveInTx(ctx context.Context, tx *sql.Tx, chatID, marriageID int64) (*models.Dissolution, error) {
	var participants, children pq.Int64Array
	err := tx.QueryRowContext(ctx, `
		SELECT
			COALESCE(ARRAY_AGG(DISTINCT u.user_id) FILTER (WHERE u.marriage_id = $2), '{}'),
			COALESCE(ARRAY_AGG(DISTINCT u.user_id) FILTER (WHERE u.parent_marriage_id = $2), '{}')
		FROM users u
		WHERE u.chat_id = $1
		AND (u.marriage_id = $2 OR u.parent_marriage_id = $2)`,
		chatID, marriageID,
	).Scan(&participants, &children)
	if err != nil {
		return nil, fmt.Errorf("failed to collect marriage members: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM marriages WHERE id = $2 AND chat_id = $1`,
		chatID, marriageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete marriage: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if deleted == 0 {
		return nil, nil
	}

	// Spouses lose their marriage, children lose their parents, in one pass.
	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET
			marriage_id = CASE WHEN marriage_id = $2 THEN NULL ELSE marriage_id END,
			adoption_date = CASE WHEN parent_marriage_id = $2 THEN NULL ELSE adoption_date END,
			parent_marriage_id = CASE WHEN parent_marriage_id = $2 THEN NULL ELSE parent_marriage_id END
		WHERE chat_id = $1 AND (marriage_id = $2 OR parent_marriage_id = $2)`,
		chatID, marriageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to unlink marriage members: %w", err)
	}

	return &models.Dissolution{
		MarriageID:        marriageID,
		ParticipantIDs:    participants,
		AbandonedChildIDs: children,
	}, nil
}

func (r *marriageRepository) GetByUser(ctx context.Context, chatID, userID int64) (*models.MarriageInfo, error) {
	query := `
		SELECT
			m.id,
			m.date,
			COALESCE(ARRAY_AGG(DISTINCT p.user_id), '{}'),
			COALESCE(ARRAY_AGG(DISTINCT c.user_id) FILTER (WHERE c.user_id IS NOT NULL), '{}')
		FROM users u
		JOIN marriages m ON m.id = u.marriage_id
		JOIN users p ON p.chat_id = u.chat_id AND p.marriage_id = m.id
		LEFT JOIN users c ON c.chat_id = u.chat_id AND c.parent_marriage_id = m.id
		WHERE u.chat_id = $1 AND u.user_id = $2
		GROUP BY m.id, m.date`

	info := &models.MarriageInfo{}
	var participants, children pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, chatID, userID).Scan(
		&info.ID, &info.Date, &participants, &children,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user marriage: %w", err)
	}
	info.Participants = participants
	info.ChildIDs = children
	return info, nil
}

func (r *marriageRepository) List(ctx context.Context, chatID int64, page, perPage int) (*models.MarriageList, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM marriages WHERE chat_id = $1`, chatID,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count marriages: %w", err)
	}

	query := `
		SELECT
			m.id,
			m.date,
			COALESCE(ARRAY_AGG(u.user_id), '{}')
		FROM marriages m
		JOIN users u ON u.chat_id = m.chat_id AND u.marriage_id = m.id
		WHERE m.chat_id = $1
		GROUP BY m.id, m.date
		ORDER BY m.date ASC, m.id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, chatID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list marriages: %w", err)
	}
	defer rows.Close()

	list := &models.MarriageList{
		Page:       page,
		TotalPages: (total + perPage - 1) / perPage,
	}
	for rows.Next() {
		info := &models.MarriageInfo{}
		var participants pq.Int64Array
		if err := rows.Scan(&info.ID, &info.Date, &participants); err != nil {
			return nil, fmt.Errorf("failed to scan marriage: %w", err)
		}
		info.Participants = participants
		list.Items = append(list.Items, info)
	}
	return list, rows.Err()
}

func (r *marriageRepository) SetParent(ctx context.Context, chatID, marriageID, childID int64, adoptionDate time.Time) error {
	query := `
		UPDATE users
		SET parent_marriage_id = $1, adoption_date = $2
		WHERE chat_id = $3 AND user_id = $4`

	res, err := r.db.ExecContext(ctx, query, marriageID, adoptionDate, chatID, childID)
	if err != nil {
		return fmt.Errorf("failed to set parent marriage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("child %d not found in chat %d", childID, chatID)
	}
	return nil
}

func (r *marriageRepository) ClearParent(ctx context.Context, chatID, childID int64) error {
	query := `
		UPDATE users
		SET parent_marriage_id = NULL, adoption_date = NULL
		WHERE chat_id = $1 AND user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, chatID, childID); err != nil {
		return fmt.Errorf("failed to clear parent marriage: %w", err)
	}
	return nil
}
