package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kinbot/kinbot/internal/metrics"
	"github.com/kinbot/kinbot/internal/models"
	"github.com/kinbot/kinbot/pkg/timefmt"
)

// FamilyTree builds the bounded family forest around the focal user: their
// own marriage (or a singleton node), two generations up and down, and
// same-generation siblings. Returns nil when the user is not in a family.
func (s *Service) FamilyTree(ctx context.Context, chatID, userID int64) ([]*models.TreeNode, error) {
	rows, err := s.Graph.FamilyTreeRows(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family tree: %w", err)
	}

	roots := BuildFamilyTree(rows, userID, time.Now().UTC())
	if roots != nil {
		metrics.TreeRenders.Inc()
	}
	return roots, nil
}

// BuildFamilyTree assembles flat tree-query rows into a forest of nodes,
// one node per marriage (or per unmarried single, under a negative
// pseudo-key). A node whose marriage has several in-window parent marriages
// is attached under each of them and therefore shared between their child
// lists; deduplication happens later, in the outline.
func BuildFamilyTree(rows []models.FamilyTreeRow, focalID int64, now time.Time) []*models.TreeNode {
	if len(rows) == 0 {
		return nil
	}

	nodes := make(map[int64]*models.TreeNode)
	personToNode := make(map[int64]int64)
	var order []int64

	nodeKey := func(marriageID *int64, userID int64) int64 {
		if marriageID != nil {
			return *marriageID
		}
		return -userID
	}

	// Pass 1: one node per key, blood members in row order.
	for _, row := range rows {
		key := nodeKey(row.MarriageID, row.UserID)

		node, ok := nodes[key]
		if !ok {
			node = &models.TreeNode{
				MarriageID:       row.MarriageID,
				ParentMarriageID: row.ParentMarriageID,
				ParentIDs:        row.ParentIDs,
			}
			nodes[key] = node
			order = append(order, key)
		}

		if !hasMember(node, row.UserID) {
			node.Members = append(node.Members, &models.TreeMember{
				UserID:       row.UserID,
				Name:         memberName(row.Name, row.UserID),
				IsMe:         row.UserID == focalID,
				AdoptionNote: adoptionNote(row.AdoptionDate, now),
			})
		}
		personToNode[row.UserID] = key
	}

	// Pass 2: spouses that never got a row of their own married into the
	// node from outside the bloodline.
	for _, row := range rows {
		if row.SpouseID == nil {
			continue
		}
		if _, seen := personToNode[*row.SpouseID]; seen {
			continue
		}
		key := nodeKey(row.MarriageID, row.UserID)
		node := nodes[key]
		node.Members = append(node.Members, &models.TreeMember{
			UserID:       *row.SpouseID,
			Name:         memberName(row.SpouseName, *row.SpouseID),
			IsPartner:    true,
			AdoptionNote: "spouse",
		})
		personToNode[*row.SpouseID] = key
	}

	// Pass 3: wire children under every in-window parent node. Nodes with
	// no reachable parent become roots, including generation -2 marriages
	// whose own parents fall outside the window.
	var roots []*models.TreeNode
	for _, key := range order {
		node := nodes[key]
		attached := false

		for _, parentID := range node.ParentIDs {
			if parent, ok := nodes[parentID]; ok {
				parent.Children = append(parent.Children, node)
				attached = true
			}
		}
		if !attached && node.ParentMarriageID != nil {
			if parent, ok := nodes[*node.ParentMarriageID]; ok {
				parent.Children = append(parent.Children, node)
				attached = true
			}
		}
		if !attached {
			roots = append(roots, node)
		}
	}

	// A lone focal user with no spouse and no children is not a family.
	if len(roots) == 1 && len(roots[0].Members) == 1 && len(roots[0].Children) == 0 {
		return nil
	}
	return roots
}

// Outline flattens the forest depth-first for rendering. The first time a
// marriage is met it is expanded in full; any later encounter through
// another join path becomes a compact reference entry and its subtree is
// not walked again.
func Outline(roots []*models.TreeNode) []models.OutlineEntry {
	seen := make(map[int64]bool)
	var entries []models.OutlineEntry

	var walk func(node *models.TreeNode, depth int)
	walk = func(node *models.TreeNode, depth int) {
		if node.MarriageID != nil && seen[*node.MarriageID] {
			entries = append(entries, models.OutlineEntry{Node: node, Depth: depth, Reference: true})
			return
		}
		if node.MarriageID != nil {
			seen[*node.MarriageID] = true
		}
		entries = append(entries, models.OutlineEntry{Node: node, Depth: depth})
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}

	for _, root := range roots {
		walk(root, 0)
	}
	return entries
}

func hasMember(node *models.TreeNode, userID int64) bool {
	for _, m := range node.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func memberName(name string, userID int64) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("user %d", userID)
}

func adoptionNote(adoptionDate *time.Time, now time.Time) string {
	if adoptionDate == nil {
		return "no parents yet"
	}
	return "child for " + timefmt.Since(*adoptionDate, now)
}
