// Package selector implements weighted random selection over a weight-sum binary tree. Insert,
// Update, Remove and Select run in time proportional to the tree height.
package selector

import (
	"math/rand"
)

// Node is either a leaf, holding a caller key and weight, or an internal node caching the sum
// of its children's weights.
type Node[K any] struct {
	key      K
	weight   float64
	internal bool

	parent, left, right *Node[K]
	// position in Selector.leaves, -1 while detached
	slot int
}

// Key returns the key stored in a leaf.
func (n *Node[K]) Key() K {
	return n.key
}

// Weight returns the weight of the node. For internal nodes it is the sum over its leaves.
func (n *Node[K]) Weight() float64 {
	return n.weight
}

// Selector picks leaves with probability proportional to their weights. Weights must be
// non-negative. A Selector is not safe for concurrent use.
type Selector[K any] struct {
	root   *Node[K]
	leaves []*Node[K]
}

// New returns an empty selector.
func New[K any]() *Selector[K] {
	return &Selector[K]{}
}

// Create returns a new detached leaf. It takes part in selection once inserted.
func (s *Selector[K]) Create(key K, weight float64) *Node[K] {
	return &Node[K]{key: key, weight: weight, slot: -1}
}

// NrNodes returns the number of inserted leaves.
func (s *Selector[K]) NrNodes() int {
	return len(s.leaves)
}

// TotalWeight returns the sum of the weights of all inserted leaves.
func (s *Selector[K]) TotalWeight() float64 {
	if s.root == nil {
		return 0
	}
	return s.root.weight
}

// Leaves returns the inserted leaves in no particular order. The slice must not be modified.
func (s *Selector[K]) Leaves() []*Node[K] {
	return s.leaves
}

// Insert attaches a detached leaf. The insertion point is found by descending toward the
// lighter subtree; an empty child slot is filled directly, otherwise the leaf found there is
// pushed down under a new internal node.
func (s *Selector[K]) Insert(node *Node[K]) {
	if node.slot >= 0 || node.internal {
		panic("selector: insert of an attached or internal node")
	}
	node.parent, node.left, node.right = nil, nil, nil
	node.slot = len(s.leaves)
	s.leaves = append(s.leaves, node)

	if s.root == nil {
		s.root = node
		return
	}

	curr := s.root
	for curr.internal && curr.left != nil && curr.right != nil {
		if curr.left.weight <= curr.right.weight {
			curr = curr.left
		} else {
			curr = curr.right
		}
	}

	if curr.internal {
		if curr.left == nil {
			curr.left = node
		} else {
			curr.right = node
		}
		node.parent = curr
		s.updateAncestors(curr)
		return
	}

	// curr is a leaf: replace it with an internal node holding curr on the left and the new
	// leaf on the right.
	inner := &Node[K]{internal: true, slot: -1, parent: curr.parent, left: curr, right: node}
	s.replaceChild(curr.parent, curr, inner)
	curr.parent = inner
	node.parent = inner
	s.updateAncestors(inner)
}

// Update sets the weight of an inserted leaf and restores the cached sums up to the root.
func (s *Selector[K]) Update(node *Node[K], weight float64) {
	node.weight = weight
	if node.slot >= 0 {
		s.updateAncestors(node.parent)
	}
}

// Remove detaches an inserted leaf. Internal nodes left without children are removed too.
func (s *Selector[K]) Remove(node *Node[K]) {
	if node.slot < 0 {
		return
	}
	last := s.leaves[len(s.leaves)-1]
	s.leaves[node.slot] = last
	last.slot = node.slot
	s.leaves = s.leaves[:len(s.leaves)-1]
	node.slot = -1

	parent := node.parent
	s.replaceChild(parent, node, nil)
	node.parent = nil
	for parent != nil && parent.left == nil && parent.right == nil {
		grand := parent.parent
		s.replaceChild(grand, parent, nil)
		parent = grand
	}
	s.updateAncestors(parent)
}

// Select returns the leaf whose cumulative weight range covers r, for r in [0, TotalWeight()).
// It returns nil when the selector is empty.
func (s *Selector[K]) Select(r float64) *Node[K] {
	curr := s.root
	if curr == nil {
		return nil
	}
	for curr.internal {
		if curr.left != nil && (curr.right == nil || r < curr.left.weight) {
			curr = curr.left
			continue
		}
		if curr.left != nil {
			r -= curr.left.weight
		}
		curr = curr.right
	}
	return curr
}

// SelectRandom draws a leaf with probability proportional to its weight. When every weight is
// zero the draw is uniform over the leaves. It returns nil when the selector is empty.
func (s *Selector[K]) SelectRandom(rng *rand.Rand) *Node[K] {
	if len(s.leaves) == 0 {
		return nil
	}
	total := s.TotalWeight()
	if total <= 0 {
		return s.leaves[rng.Intn(len(s.leaves))]
	}
	return s.Select(rng.Float64() * total)
}

func (s *Selector[K]) replaceChild(parent, old, repl *Node[K]) {
	switch {
	case parent == nil:
		s.root = repl
	case parent.left == old:
		parent.left = repl
	default:
		parent.right = repl
	}
}

func (s *Selector[K]) updateAncestors(n *Node[K]) {
	for ; n != nil; n = n.parent {
		w := 0.0
		if n.left != nil {
			w += n.left.weight
		}
		if n.right != nil {
			w += n.right.weight
		}
		n.weight = w
	}
}
