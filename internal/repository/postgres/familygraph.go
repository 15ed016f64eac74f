package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/kinbot/kinbot/internal/models"
	"github.com/kinbot/kinbot/internal/repository"
)

type familyGraphRepository struct {
	db *sql.DB
}

// NewFamilyGraphRepository creates a new family graph repository
func NewFamilyGraphRepository(db *sql.DB) repository.FamilyGraphRepository {
	return &familyGraphRepository{db: db}
}

// IsAncestor walks the adoption chain upward from subject: first the members
// of subject's parent marriage, then the members of their parent marriages,
// and so on. Zero hops never match, so nobody is their own ancestor. The
// walk terminates because marriage creation refuses vertical-ancestry pairs,
// which is the only way a cycle could enter the forest.
func (r *familyGraphRepository) IsAncestor(ctx context.Context, chatID, candidateAncestor, subject int64) (bool, error) {
	query := `
		WITH RECURSIVE ancestors AS (
			SELECT
				parent.user_id,
				parent.parent_marriage_id,
				parent.marriage_id
			FROM users parent
			JOIN users child ON parent.marriage_id = child.parent_marriage_id
			WHERE child.chat_id = $1 AND child.user_id = $2
			AND parent.chat_id = $1

			UNION ALL

			SELECT
				grandparent.user_id,
				grandparent.parent_marriage_id,
				grandparent.marriage_id
			FROM users grandparent
			JOIN ancestors child ON grandparent.marriage_id = child.parent_marriage_id
			WHERE grandparent.chat_id = $1
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE user_id = $3)`

	var found bool
	err := r.db.QueryRowContext(ctx, query, chatID, subject, candidateAncestor).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check ancestry: %w", err)
	}
	return found, nil
}

func (r *familyGraphRepository) IsParent(ctx context.Context, chatID, parentID, childID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM users
			WHERE chat_id = $1 AND user_id = $2 AND parent_marriage_id = (
				SELECT marriage_id
				FROM users
				WHERE chat_id = $1 AND user_id = $3
			)
		)`

	var found bool
	err := r.db.QueryRowContext(ctx, query, chatID, childID, parentID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check parenthood: %w", err)
	}
	return found, nil
}

func (r *familyGraphRepository) IsChild(ctx context.Context, chatID, userID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM users
			WHERE chat_id = $1 AND user_id = $2 AND parent_marriage_id IS NOT NULL
		)`

	var found bool
	err := r.db.QueryRowContext(ctx, query, chatID, userID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check child status: %w", err)
	}
	return found, nil
}

// FamilyTreeRows collects everyone within two generations of the focal user
// plus their generation-0 siblings. The recursion is double-bounded: the
// generation window keeps the otherwise depthless forest finite, and the
// visited array stops re-entry through sibling marriages even though the
// relation itself is acyclic.
func (r *familyGraphRepository) FamilyTreeRows(ctx context.Context, chatID, userID int64) ([]models.FamilyTreeRow, error) {
	query := `
		WITH RECURSIVE
		marriage_parents AS (
			-- Every parent marriage feeding into each marriage: both spouses
			-- may have been adopted by different couples.
			SELECT
				marriage_id,
				ARRAY_AGG(DISTINCT parent_marriage_id) FILTER (WHERE parent_marriage_id IS NOT NULL) AS parent_ids
			FROM users
			WHERE chat_id = $1 AND marriage_id IS NOT NULL
			GROUP BY marriage_id
		),

		family_tree AS (
			SELECT
				u.user_id,
				u.marriage_id,
				u.parent_marriage_id,
				COALESCE(mp.parent_ids, '{}') AS parent_ids,
				0 AS generation,
				ARRAY[u.user_id] AS visited_users
			FROM users u
			LEFT JOIN marriage_parents mp ON u.marriage_id = mp.marriage_id
			WHERE u.chat_id = $1 AND u.user_id = $2

			UNION ALL

			SELECT
				u.user_id,
				u.marriage_id,
				u.parent_marriage_id,
				COALESCE(mp.parent_ids, '{}') AS parent_ids,
				CASE
					WHEN (COALESCE(mp.parent_ids, '{}') && ARRAY[ft.marriage_id]) OR (u.parent_marriage_id = ft.marriage_id)
					THEN ft.generation + 1
					WHEN (ft.parent_ids && ARRAY[u.marriage_id]) OR (u.marriage_id = ft.parent_marriage_id)
					THEN ft.generation - 1
				END AS generation,
				ft.visited_users || u.user_id
			FROM users u
			LEFT JOIN marriage_parents mp ON u.marriage_id = mp.marriage_id
			JOIN family_tree ft ON (
				-- Downward: children of the current marriage.
				(
					(COALESCE(mp.parent_ids, '{}') && ARRAY[ft.marriage_id] OR u.parent_marriage_id = ft.marriage_id)
					AND ft.generation < 2
				)
				OR
				-- Upward: parents of the current person.
				(
					(ft.parent_ids && ARRAY[u.marriage_id] OR u.marriage_id = ft.parent_marriage_id)
					AND ft.parent_marriage_id IS NOT NULL
					AND ft.generation > -2
				)
			)
			WHERE u.chat_id = $1
			AND ft.generation BETWEEN -2 AND 2
			AND NOT (u.user_id = ANY(ft.visited_users))
		),

		siblings AS (
			SELECT
				s.user_id,
				s.marriage_id,
				s.parent_marriage_id,
				COALESCE(mp.parent_ids, '{}') AS parent_ids,
				0 AS generation
			FROM users s
			LEFT JOIN marriage_parents mp ON s.marriage_id = mp.marriage_id
			JOIN family_tree ft ON ft.generation = -1
				AND s.parent_marriage_id = ft.marriage_id
			WHERE s.chat_id = $1
			AND s.user_id <> $2
		),

		extended AS (
			SELECT user_id, marriage_id, parent_marriage_id, parent_ids, generation
			FROM family_tree
			UNION
			SELECT user_id, marriage_id, parent_marriage_id, parent_ids, generation
			FROM siblings
		)

		SELECT
			et.user_id,
			et.marriage_id,
			et.parent_marriage_id,
			COALESCE(et.parent_ids, '{}'),
			COALESCE(et.generation, 0),
			COALESCE(u.nickname, ''),
			u.adoption_date,
			spouse.user_id,
			COALESCE(spouse.nickname, '')
		FROM extended et
		LEFT JOIN users u
			ON u.user_id = et.user_id AND u.chat_id = $1
		LEFT JOIN users spouse
			ON spouse.marriage_id = et.marriage_id
			AND spouse.user_id <> et.user_id
			AND spouse.chat_id = $1
		ORDER BY et.generation, et.user_id`

	rows, err := r.db.QueryContext(ctx, query, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family tree: %w", err)
	}
	defer rows.Close()

	var result []models.FamilyTreeRow
	for rows.Next() {
		var row models.FamilyTreeRow
		var parentIDs pq.Int64Array
		if err := rows.Scan(
			&row.UserID,
			&row.MarriageID,
			&row.ParentMarriageID,
			&parentIDs,
			&row.Generation,
			&row.Name,
			&row.AdoptionDate,
			&row.SpouseID,
			&row.SpouseName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan family tree row: %w", err)
		}
		row.ParentIDs = parentIDs
		result = append(result, row)
	}
	return result, rows.Err()
}
