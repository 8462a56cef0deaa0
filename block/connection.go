package block

import (
	"fmt"
	"sort"

	"pkpic.dev/gtfs/dset"
)

// Connection is one calendar-independent switching rule from the
// carrier's export: FromTripID continues as ToTripID at AtStopID for
// the given subset of carriages.
type Connection struct {
	ID         int
	FromTripID string
	ToTripID   string
	AtStopID   string
	Carriages  map[string]bool
}

func NewConnection(id int, fromTripID, toTripID, atStopID string, carriages ...string) Connection {
	set := make(map[string]bool, len(carriages))
	for _, c := range carriages {
		set[c] = true
	}
	return Connection{
		ID:         id,
		FromTripID: fromTripID,
		ToTripID:   toTripID,
		AtStopID:   atStopID,
		Carriages:  set,
	}
}

// WithTripIDPrefix returns a copy of this Connection with prefix
// prepended to both trip IDs.
func (c Connection) WithTripIDPrefix(prefix string) Connection {
	c.FromTripID = prefix + c.FromTripID
	c.ToTripID = prefix + c.ToTripID
	return c
}

// IsValid reports whether both trips exist and call at AtStopID.
// Invalid connections are discarded before resolution.
func (c Connection) IsValid(trips map[string]*TripStops) bool {
	from, ok := trips[c.FromTripID]
	if !ok || !from.Serves(c.AtStopID) {
		return false
	}
	to, ok := trips[c.ToTripID]
	return ok && to.Serves(c.AtStopID)
}

// SortedCarriages returns the carriage identifiers in lexicographic
// order.
func (c Connection) SortedCarriages() []string {
	out := make([]string, 0, len(c.Carriages))
	for carriage := range c.Carriages {
		out = append(out, carriage)
	}
	sort.Strings(out)
	return out
}

func (c Connection) carriagesIntersect(o Connection) bool {
	for carriage := range c.Carriages {
		if o.Carriages[carriage] {
			return true
		}
	}
	return false
}

func (c Connection) tripsIntersect(o Connection) bool {
	return c.FromTripID == o.FromTripID ||
		c.FromTripID == o.ToTripID ||
		c.ToTripID == o.FromTripID ||
		c.ToTripID == o.ToTripID
}

// Deduplicate merges connections sharing (from trip, to trip, stop).
// The merged connection keeps the lowest original ID and the union of
// all carriage sets. Input order is otherwise preserved.
func Deduplicate(connections []Connection) []Connection {
	type key struct {
		from, to, at string
	}

	var order []key
	unique := map[key]Connection{}
	for _, c := range connections {
		k := key{c.FromTripID, c.ToTripID, c.AtStopID}
		existing, ok := unique[k]
		if !ok {
			merged := c
			merged.Carriages = make(map[string]bool, len(c.Carriages))
			for carriage := range c.Carriages {
				merged.Carriages[carriage] = true
			}
			unique[k] = merged
			order = append(order, k)
			continue
		}
		for carriage := range c.Carriages {
			existing.Carriages[carriage] = true
		}
		if c.ID < existing.ID {
			existing.ID = c.ID
		}
		unique[k] = existing
	}

	out := make([]Connection, 0, len(order))
	for _, k := range order {
		out = append(out, unique[k])
	}
	return out
}

// GroupRelated deduplicates the given connections and partitions them
// into independent groups. Two connections end up in the same group
// if, transitively, they share an endpoint trip and their carriage
// sets intersect. Groups touching disjoint trips or disjoint
// carriages can be resolved independently.
func GroupRelated(connections []Connection) ([][]Connection, error) {
	deduped := Deduplicate(connections)

	ids := make([]int, 0, len(deduped))
	byID := make(map[int]Connection, len(deduped))
	for _, c := range deduped {
		if _, ok := byID[c.ID]; ok {
			return nil, fmt.Errorf("duplicate connection id: %d", c.ID)
		}
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	related := dset.New(ids)
	for i, a := range deduped {
		for _, b := range deduped[i+1:] {
			if a.tripsIntersect(b) && a.carriagesIntersect(b) {
				related.Merge(a.ID, b.ID)
			}
		}
	}

	groups := related.Groups()
	out := make([][]Connection, 0, len(groups))
	for _, root := range related.Roots() {
		group := make([]Connection, 0, len(groups[root]))
		for _, id := range groups[root] {
			group = append(group, byID[id])
		}
		out = append(out, group)
	}
	return out, nil
}

// DisjointCarriageSets partitions the carriages mentioned by a single
// connection group. Two carriages end up in the same set if and only
// if they are switched by exactly the same connections, yielding one
// representative carriage per distinct path through the group.
func DisjointCarriageSets(connections []Connection) *dset.DisjointSet[string] {
	var order []string
	connsByCarriage := map[string]map[int]bool{}
	for _, c := range connections {
		for _, carriage := range c.SortedCarriages() {
			if connsByCarriage[carriage] == nil {
				connsByCarriage[carriage] = map[int]bool{}
				order = append(order, carriage)
			}
			connsByCarriage[carriage][c.ID] = true
		}
	}

	carriages := dset.New(order)
	for i, a := range order {
		for _, b := range order[i+1:] {
			if sameIDSet(connsByCarriage[a], connsByCarriage[b]) {
				carriages.Merge(a, b)
			}
		}
	}
	return carriages
}

func sameIDSet(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}
