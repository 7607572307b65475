package overlay

// node is the state shared by every virtual node kind: the overlay it
// belongs to, its absolute path, and its creation index (the left bound for
// resolving children, per §4.5.1).
type node struct {
	ov            *Overlay
	path          string
	creationIndex int
}

// Path returns the node's absolute path.
func (n node) Path() string { return n.path }

// CreationIndex returns the node's left-bound file slot.
func (n node) CreationIndex() int { return n.creationIndex }

// Equal implements §4.5.5: two virtual nodes are equal iff they address the
// same ordered-file-list identity, the same absolute path, and the same
// creation index.
func (n node) equal(other node) bool {
	return n.ov == other.ov && n.path == other.path && n.creationIndex == other.creationIndex
}
