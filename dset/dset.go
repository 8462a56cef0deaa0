// Package dset provides a disjoint-set (union-find) over an explicit,
// finite universe of elements.
package dset

import "fmt"

// DisjointSet partitions a universe of elements into groups. Every
// element starts out as its own singleton group; Merge joins two
// groups together.
//
// Elements are mapped to arena indices on construction, with unions
// and lookups operating on a flat parent slice.
type DisjointSet[T comparable] struct {
	index  map[T]int
	elems  []T
	parent []int
}

// New creates a DisjointSet over the given universe. Duplicate
// elements are ignored.
func New[T comparable](universe []T) *DisjointSet[T] {
	d := &DisjointSet[T]{index: make(map[T]int, len(universe))}
	for _, e := range universe {
		if _, ok := d.index[e]; ok {
			continue
		}
		d.index[e] = len(d.elems)
		d.elems = append(d.elems, e)
		d.parent = append(d.parent, len(d.parent))
	}
	return d
}

func (d *DisjointSet[T]) Len() int { return len(d.elems) }

func (d *DisjointSet[T]) Contains(x T) bool {
	_, ok := d.index[x]
	return ok
}

// FindRoot returns the representative element of the group containing
// x, applying path compression along the way. Looking up an element
// outside the universe is a programming error and panics.
func (d *DisjointSet[T]) FindRoot(x T) T {
	return d.elems[d.findRoot(d.mustIndex(x))]
}

// Merge joins the groups containing x and y, attaching y's root under
// x's root.
func (d *DisjointSet[T]) Merge(x, y T) {
	rx := d.findRoot(d.mustIndex(x))
	ry := d.findRoot(d.mustIndex(y))
	d.parent[ry] = rx
}

// Groups returns a mapping from each root element to all elements of
// its group, in universe insertion order.
func (d *DisjointSet[T]) Groups() map[T][]T {
	groups := make(map[T][]T)
	for i, e := range d.elems {
		root := d.elems[d.findRoot(i)]
		groups[root] = append(groups[root], e)
	}
	return groups
}

// Roots returns one representative per group, ordered by the universe
// position of each group's first element. Useful for deterministic
// iteration over Groups.
func (d *DisjointSet[T]) Roots() []T {
	var roots []T
	seen := make(map[int]bool)
	for i := range d.elems {
		r := d.findRoot(i)
		if !seen[r] {
			seen[r] = true
			roots = append(roots, d.elems[r])
		}
	}
	return roots
}

func (d *DisjointSet[T]) mustIndex(x T) int {
	i, ok := d.index[x]
	if !ok {
		panic(fmt.Sprintf("dset: element not in universe: %v", x))
	}
	return i
}

func (d *DisjointSet[T]) findRoot(i int) int {
	root := i
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[i] != root {
		d.parent[i], i = root, d.parent[i]
	}
	return root
}
