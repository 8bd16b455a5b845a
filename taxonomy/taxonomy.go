package taxonomy

import (
	"log/slog"
	"strings"
	"sync"
)

// Row is one entry of the level-annotated source table. Rows are implicitly
// ordered so that a parent always precedes its children; nesting is defined
// by Level alone, never by code-string semantics.
type Row struct {
	Level int
	Code  string
	Label string
}

// Node is a single entry in the tariff nomenclature tree. Nodes are created
// once at load time and immutable afterwards, except for the lazily memoized
// full path.
type Node struct {
	Level  int
	Code   string
	Label  string
	NodeId int

	parent   *Node
	children []*Node

	pathOnce sync.Once
	path     []string
}

// IsLeaf reports whether the node has no children. Leaves are the only
// classifiable units.
func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// Children returns the node's direct children in source order.
func (n *Node) Children() []*Node {
	return n.children
}

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// PathLabels returns the root-first sequence of labels from the root down to
// this node. The slice is memoized on first use; the tree is immutable after
// load, so no invalidation is needed. Callers must not modify it.
func (n *Node) PathLabels() []string {
	n.pathOnce.Do(func() {
		var labels []string
		for cur := n; cur != nil; cur = cur.parent {
			labels = append(labels, cur.Label)
		}
		// Reverse to root-first order.
		for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
			labels[i], labels[j] = labels[j], labels[i]
		}
		n.path = labels
	})
	return n.path
}

// FullPath returns the root-first label sequence joined with " → ".
func (n *Node) FullPath() string {
	return strings.Join(n.PathLabels(), " → ")
}

// Index holds the reconstructed nomenclature forest and the canonical leaf
// ordering every downstream component keys on. Read-only after Load; safe to
// share by reference across concurrent sessions.
type Index struct {
	roots  []*Node
	leaves []*Node
	logger *slog.Logger
}

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		idx.logger = logger
		return nil
	}
}

// Load builds the forest from level-ordered rows in a single linear pass.
//
// A stack of ancestor candidates is maintained: for each row, every stack
// entry whose level is >= the new row's level is popped (it cannot be an
// ancestor), the node is attached as a child of the remaining stack top (or
// becomes a new root when the stack is empty), and then pushed. Rows with no
// valid parent therefore degrade to new roots instead of failing.
func Load(rows []Row, opts ...Option) (*Index, error) {
	idx := &Index{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}

	var stack []*Node
	for i, row := range rows {
		node := &Node{
			Level:  row.Level,
			Code:   strings.TrimSpace(row.Code),
			Label:  strings.TrimSpace(row.Label),
			NodeId: i,
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			idx.roots = append(idx.roots, node)
		} else {
			parent := stack[len(stack)-1]
			node.parent = parent
			parent.children = append(parent.children, node)
		}

		stack = append(stack, node)
	}

	idx.extractLeaves()

	idx.logger.Debug("taxonomy loaded",
		"rows", len(rows),
		"roots", len(idx.roots),
		"leaves", len(idx.leaves))

	return idx, nil
}

// extractLeaves walks the forest depth-first, left-to-right over roots. The
// resulting order is the canonical leaf index; the embedding matrix row order
// must match it exactly.
func (idx *Index) extractLeaves() {
	idx.leaves = idx.leaves[:0]

	var traverse func(node *Node)
	traverse = func(node *Node) {
		if node.IsLeaf() {
			idx.leaves = append(idx.leaves, node)
		}
		for _, child := range node.children {
			traverse(child)
		}
	}

	for _, root := range idx.roots {
		traverse(root)
	}
}

// Roots returns the top-level nodes in source order.
func (idx *Index) Roots() []*Node {
	return idx.roots
}

// Leaves returns the leaf nodes in canonical depth-first order. Callers must
// not modify the returned slice.
func (idx *Index) Leaves() []*Node {
	return idx.leaves
}
