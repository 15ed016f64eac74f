package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinbot/kinbot/internal/models"
)

func i64(v int64) *int64 { return &v }

var treeNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestBuildFamilyTreeEmpty(t *testing.T) {
	assert.Nil(t, BuildFamilyTree(nil, 1, treeNow))
}

func TestBuildFamilyTreeLoneUser(t *testing.T) {
	rows := []models.FamilyTreeRow{
		{UserID: 1, Name: "Anna"},
	}
	assert.Nil(t, BuildFamilyTree(rows, 1, treeNow), "a single person is not a family")
}

func TestBuildFamilyTreeMarriedInSpouse(t *testing.T) {
	// The spouse has no blood row of their own; they only appear through
	// the spouse join.
	rows := []models.FamilyTreeRow{
		{UserID: 1, MarriageID: i64(10), Name: "Anna", SpouseID: i64(2), SpouseName: "Boris"},
	}

	roots := BuildFamilyTree(rows, 1, treeNow)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Members, 2)

	anna, boris := roots[0].Members[0], roots[0].Members[1]
	assert.True(t, anna.IsMe)
	assert.False(t, anna.IsPartner)
	assert.True(t, boris.IsPartner)
	assert.Equal(t, "spouse", boris.AdoptionNote)
	assert.Equal(t, "Boris", boris.Name)
}

func TestBuildFamilyTreeCoupleWithChild(t *testing.T) {
	adopted := treeNow.Add(-48 * time.Hour)
	rows := []models.FamilyTreeRow{
		{UserID: 1, MarriageID: i64(10), Generation: 0, Name: "Anna", SpouseID: i64(2), SpouseName: "Boris"},
		{UserID: 2, MarriageID: i64(10), Generation: 0, Name: "Boris", SpouseID: i64(1), SpouseName: "Anna"},
		{UserID: 5, ParentMarriageID: i64(10), ParentIDs: []int64{10}, Generation: 1, Name: "Kid", AdoptionDate: &adopted},
	}

	roots := BuildFamilyTree(rows, 1, treeNow)
	require.Len(t, roots, 1)

	root := roots[0]
	assert.Equal(t, int64(10), root.Key())
	require.Len(t, root.Members, 2, "both spouses have blood rows, none may be duplicated")
	require.Len(t, root.Children, 1)

	kid := root.Children[0]
	assert.Equal(t, int64(-5), kid.Key(), "unmarried singles get a negative pseudo-id")
	require.Len(t, kid.Members, 1)
	assert.Equal(t, "child for 2 d.", kid.Members[0].AdoptionNote)
}

func TestBuildFamilyTreeSharedGrandchild(t *testing.T) {
	// Marriage 30 was formed by children of two different couples, so it
	// hangs under both of them.
	rows := []models.FamilyTreeRow{
		{UserID: 1, MarriageID: i64(10), Generation: -1, Name: "A"},
		{UserID: 3, MarriageID: i64(20), Generation: -1, Name: "C"},
		{UserID: 5, MarriageID: i64(30), ParentMarriageID: i64(10), ParentIDs: []int64{10, 20}, Generation: 0, Name: "E", SpouseID: i64(6), SpouseName: "F"},
		{UserID: 6, MarriageID: i64(30), ParentMarriageID: i64(20), ParentIDs: []int64{10, 20}, Generation: 0, Name: "F", SpouseID: i64(5), SpouseName: "E"},
	}

	roots := BuildFamilyTree(rows, 5, treeNow)
	require.Len(t, roots, 2)
	require.Len(t, roots[0].Children, 1)
	require.Len(t, roots[1].Children, 1)
	assert.Same(t, roots[0].Children[0], roots[1].Children[0], "the shared node is one object, not a copy")

	entries := Outline(roots)
	require.Len(t, entries, 4)

	assert.False(t, entries[1].Reference)
	assert.Equal(t, int64(30), entries[1].Node.Key())

	assert.True(t, entries[3].Reference, "second encounter of marriage 30 collapses to a reference")
	assert.Equal(t, int64(30), entries[3].Node.Key())
	assert.Equal(t, 1, entries[3].Depth)
}

func TestBuildFamilyTreeParentOutsideWindow(t *testing.T) {
	// The grandparents' own parents are beyond the two-generation window;
	// their node must still appear, as a root.
	rows := []models.FamilyTreeRow{
		{UserID: 1, MarriageID: i64(10), ParentMarriageID: i64(99), ParentIDs: []int64{99}, Generation: -2, Name: "Old"},
		{UserID: 3, ParentMarriageID: i64(10), ParentIDs: []int64{10}, Generation: -1, Name: "Mid"},
	}

	roots := BuildFamilyTree(rows, 3, treeNow)
	require.Len(t, roots, 1)
	assert.Equal(t, int64(10), roots[0].Key())
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, int64(-3), roots[0].Children[0].Key())
}

func TestBuildFamilyTreeNamelessMember(t *testing.T) {
	rows := []models.FamilyTreeRow{
		{UserID: 1, MarriageID: i64(10), SpouseID: i64(2)},
	}

	roots := BuildFamilyTree(rows, 1, treeNow)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Members, 2)
	assert.Equal(t, "user 1", roots[0].Members[0].Name)
	assert.Equal(t, "user 2", roots[0].Members[1].Name)
}

func TestBuildFamilyTreeMissingAdoptionDate(t *testing.T) {
	rows := []models.FamilyTreeRow{
		{UserID: 1, MarriageID: i64(10), Name: "Anna", SpouseID: i64(2), SpouseName: "Boris"},
		{UserID: 5, ParentMarriageID: i64(10), ParentIDs: []int64{10}, Name: "Kid"},
	}

	roots := BuildFamilyTree(rows, 1, treeNow)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "no parents yet", roots[0].Children[0].Members[0].AdoptionNote,
		"a child row without an adoption date predates adoption tracking")
}

func TestOutlineDepths(t *testing.T) {
	grandparents := &models.TreeNode{MarriageID: i64(1)}
	parents := &models.TreeNode{MarriageID: i64(2)}
	kid := &models.TreeNode{Members: []*models.TreeMember{{UserID: 9}}}
	grandparents.Children = []*models.TreeNode{parents}
	parents.Children = []*models.TreeNode{kid}

	entries := Outline([]*models.TreeNode{grandparents})
	require.Len(t, entries, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{entries[0].Depth, entries[1].Depth, entries[2].Depth})
}
