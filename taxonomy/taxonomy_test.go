package taxonomy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []Row {
	return []Row{
		{Level: 0, Code: "22", Label: "Beverages, spirits and vinegar"},
		{Level: 1, Code: "2202", Label: "Waters, containing added sugar"},
		{Level: 2, Code: "2202 10 00", Label: "Waters, including mineral and aerated"},
		{Level: 2, Code: "2202 99", Label: "Other"},
		{Level: 3, Code: "2202 99 11", Label: "Soya-based beverages"},
		{Level: 3, Code: "2202 99 15", Label: "Other beverages"},
		{Level: 1, Code: "2208", Label: "Undenatured ethyl alcohol"},
		{Level: 2, Code: "2208 20", Label: "Spirits obtained by distilling grape wine"},
	}
}

func TestLoadBuildsHierarchy(t *testing.T) {
	idx, err := Load(sampleRows())
	require.NoError(t, err)

	roots := idx.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "22", roots[0].Code)
	require.Len(t, roots[0].Children(), 2)

	first := roots[0].Children()[0]
	assert.Equal(t, "2202", first.Code)
	require.Len(t, first.Children(), 2)
	assert.Equal(t, roots[0], first.Parent())
}

func TestLeavesDepthFirstOrder(t *testing.T) {
	idx, err := Load(sampleRows())
	require.NoError(t, err)

	var codes []string
	for _, leaf := range idx.Leaves() {
		codes = append(codes, leaf.Code)
	}
	assert.Equal(t, []string{
		"2202 10 00",
		"2202 99 11",
		"2202 99 15",
		"2208 20",
	}, codes)
}

func TestLeafCountMatchesTraversal(t *testing.T) {
	idx, err := Load(sampleRows())
	require.NoError(t, err)

	count := 0
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			count++
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	for _, root := range idx.Roots() {
		walk(root)
	}
	assert.Equal(t, count, len(idx.Leaves()))
}

func TestFullPathRootFirst(t *testing.T) {
	idx, err := Load(sampleRows())
	require.NoError(t, err)

	leaf := idx.Leaves()[1]
	require.Equal(t, "2202 99 11", leaf.Code)

	path := leaf.FullPath()
	assert.Equal(t,
		"Beverages, spirits and vinegar → Waters, containing added sugar → Other → Soya-based beverages",
		path)

	// Memoized; repeated calls return the identical value.
	assert.Equal(t, path, leaf.FullPath())
}

func TestSiblingLevelJump(t *testing.T) {
	// A row whose level skips back past several ancestors must attach at
	// the correct depth, not the most recent node.
	rows := []Row{
		{Level: 0, Code: "84", Label: "Machinery"},
		{Level: 1, Code: "8471", Label: "Computers"},
		{Level: 2, Code: "8471 30", Label: "Portable computers"},
		{Level: 0, Code: "85", Label: "Electrical machinery"},
	}
	idx, err := Load(rows)
	require.NoError(t, err)

	roots := idx.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "85", roots[1].Code)
	assert.Nil(t, roots[1].Parent())
}

func TestOrphanRowBecomesRoot(t *testing.T) {
	// First row already deep: no ancestor exists, so it becomes a root.
	rows := []Row{
		{Level: 3, Code: "9503 00 10", Label: "Tricycles and scooters"},
		{Level: 0, Code: "95", Label: "Toys"},
	}
	idx, err := Load(rows)
	require.NoError(t, err)
	require.Len(t, idx.Roots(), 2)
	assert.Equal(t, "9503 00 10", idx.Roots()[0].Code)
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"level,code,label",
		"0,22,Beverages",
		"not-a-level,2202,Broken",
		"1,2202,Waters",
		"2,2202 10 00,",
		`2,"2202 99","Other"`,
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Row{Level: 0, Code: "22", Label: "Beverages"}, rows[0])
	assert.Equal(t, Row{Level: 2, Code: "2202 99", Label: "Other"}, rows[2])
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("level,code,label\n"), nil)
	require.Error(t, err)
}
