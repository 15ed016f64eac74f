package models

import "time"

// FamilyTreeRow is one flat row of the bounded family-tree query: a user
// somewhere within two generations of the focal user, annotated with the
// marriages that connect them. ParentIDs carries every parent marriage
// feeding into the row's marriage, because both spouses may have been
// adopted by different couples.
type FamilyTreeRow struct {
	UserID           int64
	MarriageID       *int64
	ParentMarriageID *int64
	ParentIDs        []int64
	Generation       int
	Name             string
	AdoptionDate     *time.Time
	SpouseID         *int64
	SpouseName       string
}

// TreeMember is one person inside a tree node.
type TreeMember struct {
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	IsMe         bool   `json:"is_me"`
	IsPartner    bool   `json:"is_partner"`
	AdoptionNote string `json:"adoption_note"`
}

// TreeNode is one unit of the rendered family forest: a marriage with its
// members, or a single unmarried person. Nodes reachable through several
// parent marriages are shared between those parents' child lists.
type TreeNode struct {
	MarriageID       *int64        `json:"marriage_id,omitempty"`
	ParentMarriageID *int64        `json:"parent_marriage_id,omitempty"`
	ParentIDs        []int64       `json:"parent_ids,omitempty"`
	Members          []*TreeMember `json:"members"`
	Children         []*TreeNode   `json:"children,omitempty"`
}

// Key identifies the node: the marriage id, or a negative pseudo-id derived
// from the user id for unmarried singles.
func (n *TreeNode) Key() int64 {
	if n.MarriageID != nil {
		return *n.MarriageID
	}
	if len(n.Members) > 0 {
		return -n.Members[0].UserID
	}
	return 0
}

// BloodMember returns the member who belongs to this node by descent rather
// than by marriage, falling back to the first member.
func (n *TreeNode) BloodMember() *TreeMember {
	for _, m := range n.Members {
		if !m.IsPartner {
			return m
		}
	}
	if len(n.Members) > 0 {
		return n.Members[0]
	}
	return nil
}

// OutlineEntry is one line of the depth-first tree outline handed to
// renderers. A marriage that already appeared earlier in the outline is
// emitted once more as a compact reference instead of being expanded again.
type OutlineEntry struct {
	Node      *TreeNode `json:"node"`
	Depth     int       `json:"depth"`
	Reference bool      `json:"reference"`
}
