package bom

import (
	"bytes"
	stdbinary "encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/robert-malhotra/go-assetcatalog/internal/binary"
)

// Tree index signature.
var treeMagic = []byte("tree")

// Node nesting bound. Catalog trees are shallow; anything deeper indicates a
// corrupt pointer graph.
const maxTreeDepth = 64

// Errors reported by tree traversal.
var (
	ErrMalformedTree = errors.New("malformed tree")
	ErrCyclicTree    = errors.New("cyclic tree")
)

// Tree is the header of a B-tree index stored in the container. Nodes map
// opaque byte-string keys to opaque byte-string values, both held in blocks
// referenced by id.
type Tree struct {
	store *Store

	Version    uint32
	RootID     uint32 // block id of the root node
	PageSize   uint32
	EntryCount uint32
}

// Entry is one key/value pair produced by tree enumeration. Key and Value
// borrow from the container buffer.
type Entry struct {
	Key     []byte
	Value   []byte
	KeyID   uint32
	ValueID uint32
}

// node is the decoded form of one tree node block. In a leaf, pairs hold
// (value block id, key block id); in an internal node, (child node block id,
// separator key block id).
type node struct {
	isLeaf   bool
	forward  uint32
	backward uint32
	pairs    [][2]uint32
}

// ParseTree decodes a tree header from the block registered under blockID.
func ParseTree(s *Store, blockID uint32) (*Tree, error) {
	b, err := s.BlockBytes(blockID)
	if err != nil {
		return nil, err
	}
	if len(b) < 21 || !bytes.Equal(b[:4], treeMagic) {
		return nil, fmt.Errorf("%w: block %d is not a tree header", ErrMalformedTree, blockID)
	}
	r := binary.NewReader(b, stdbinary.BigEndian).At(4)
	t := &Tree{store: s}
	t.Version, _ = r.ReadUint32()
	t.RootID, _ = r.ReadUint32()
	t.PageSize, _ = r.ReadUint32()
	t.EntryCount, _ = r.ReadUint32()
	return t, nil
}

// OpenNamedTree parses the tree registered under a named container variable.
func OpenNamedTree(s *Store, name string) (*Tree, error) {
	id, ok := s.NamedBlockID(name)
	if !ok {
		return nil, fmt.Errorf("no variable named %q", name)
	}
	return ParseTree(s, id)
}

func (t *Tree) readNode(blockID uint32) (*node, error) {
	b, err := t.store.BlockBytes(blockID)
	if err != nil {
		return nil, fmt.Errorf("%w: node %d: %v", ErrMalformedTree, blockID, err)
	}
	if len(b) < 12 {
		return nil, fmt.Errorf("%w: node %d shorter than node header", ErrMalformedTree, blockID)
	}
	r := binary.NewReader(b, stdbinary.BigEndian)
	isLeaf, _ := r.ReadUint16()
	count, _ := r.ReadUint16()
	n := &node{isLeaf: isLeaf != 0}
	n.forward, _ = r.ReadUint32()
	n.backward, _ = r.ReadUint32()
	if int(count)*8 > r.Remaining() {
		return nil, fmt.Errorf("%w: node %d declares %d entries in %d bytes",
			ErrMalformedTree, blockID, count, len(b))
	}
	n.pairs = make([][2]uint32, count)
	for i := range n.pairs {
		n.pairs[i][0], _ = r.ReadUint32()
		n.pairs[i][1], _ = r.ReadUint32()
	}
	return n, nil
}

// Walk enumerates all key/value pairs in byte-lexicographic key order,
// calling fn for each. The traversal is side-effect free and restartable:
// walking twice yields the identical sequence. Keys must be strictly
// increasing; violations, unresolvable block ids and over-deep or cyclic
// node graphs fail the walk.
func (t *Tree) Walk(fn func(key, value []byte) error) error {
	w := &treeWalk{t: t, visited: make(map[uint32]bool)}
	if err := w.descend(t.RootID, 0, fn); err != nil {
		return err
	}
	return nil
}

// Entries collects the full enumeration of the tree.
func (t *Tree) Entries() ([]Entry, error) {
	var entries []Entry
	w := &treeWalk{t: t, visited: make(map[uint32]bool)}
	err := w.descendEntries(t.RootID, 0, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

type treeWalk struct {
	t       *Tree
	visited map[uint32]bool
	lastKey []byte
	hasLast bool
}

func (w *treeWalk) descend(blockID uint32, depth int, fn func(key, value []byte) error) error {
	return w.descendEntries(blockID, depth, func(e Entry) error {
		return fn(e.Key, e.Value)
	})
}

func (w *treeWalk) descendEntries(blockID uint32, depth int, fn func(Entry) error) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrCyclicTree, maxTreeDepth)
	}
	if w.visited[blockID] {
		return fmt.Errorf("%w: node %d revisited", ErrCyclicTree, blockID)
	}
	w.visited[blockID] = true

	n, err := w.t.readNode(blockID)
	if err != nil {
		return err
	}

	if !n.isLeaf {
		for _, p := range n.pairs {
			if err := w.descendEntries(p[0], depth+1, fn); err != nil {
				return err
			}
		}
		return nil
	}

	for _, p := range n.pairs {
		key, err := w.t.store.BlockBytes(p[1])
		if err != nil {
			return fmt.Errorf("%w: key block %d: %v", ErrMalformedTree, p[1], err)
		}
		value, err := w.t.store.BlockBytes(p[0])
		if err != nil {
			return fmt.Errorf("%w: value block %d: %v", ErrMalformedTree, p[0], err)
		}
		if w.hasLast && bytes.Compare(key, w.lastKey) <= 0 {
			return fmt.Errorf("%w: keys not strictly increasing at block %d", ErrMalformedTree, blockID)
		}
		w.lastKey, w.hasLast = key, true
		if err := fn(Entry{Key: key, Value: value, KeyID: p[1], ValueID: p[0]}); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds the value stored under an exact key. It descends internal
// nodes by separator key and binary-searches within leaves, so a point query
// touches one node per level.
func (t *Tree) Lookup(key []byte) ([]byte, bool, error) {
	blockID := t.RootID
	visited := make(map[uint32]bool)

	for depth := 0; ; depth++ {
		if depth > maxTreeDepth {
			return nil, false, fmt.Errorf("%w: nesting deeper than %d", ErrCyclicTree, maxTreeDepth)
		}
		if visited[blockID] {
			return nil, false, fmt.Errorf("%w: node %d revisited", ErrCyclicTree, blockID)
		}
		visited[blockID] = true

		n, err := t.readNode(blockID)
		if err != nil {
			return nil, false, err
		}

		if n.isLeaf {
			i := sort.Search(len(n.pairs), func(i int) bool {
				k, err := t.store.BlockBytes(n.pairs[i][1])
				if err != nil {
					return true
				}
				return bytes.Compare(k, key) >= 0
			})
			if i >= len(n.pairs) {
				return nil, false, nil
			}
			k, err := t.store.BlockBytes(n.pairs[i][1])
			if err != nil {
				return nil, false, fmt.Errorf("%w: key block %d: %v", ErrMalformedTree, n.pairs[i][1], err)
			}
			if !bytes.Equal(k, key) {
				return nil, false, nil
			}
			v, err := t.store.BlockBytes(n.pairs[i][0])
			if err != nil {
				return nil, false, fmt.Errorf("%w: value block %d: %v", ErrMalformedTree, n.pairs[i][0], err)
			}
			return v, true, nil
		}

		if len(n.pairs) == 0 {
			return nil, false, fmt.Errorf("%w: empty internal node %d", ErrMalformedTree, blockID)
		}

		// Pick the last child whose separator key is <= the target; keys
		// before the first separator also land in the first child.
		child := n.pairs[0][0]
		for _, p := range n.pairs {
			sep, err := t.store.BlockBytes(p[1])
			if err != nil {
				return nil, false, fmt.Errorf("%w: separator block %d: %v", ErrMalformedTree, p[1], err)
			}
			if bytes.Compare(sep, key) > 0 {
				break
			}
			child = p[0]
		}
		blockID = child
	}
}
