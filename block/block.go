package block

import (
	"fmt"
	"sort"
	"strings"
)

// Block is an ordered list of trip slices operated end-to-end by one
// continuous set of carriages. Consecutive legs are joined at the
// stop where the previous leg ends and the next begins; this holds by
// construction.
type Block struct {
	Legs      []TripSlice
	Carriages map[string]bool
}

func (b Block) LastTripID() string {
	return b.Legs[len(b.Legs)-1].TripID
}

func (b Block) LastLeg() TripSlice {
	return b.Legs[len(b.Legs)-1]
}

// SortedCarriages returns the block's carriage identifiers in
// lexicographic order.
func (b Block) SortedCarriages() []string {
	out := make([]string, 0, len(b.Carriages))
	for carriage := range b.Carriages {
		out = append(out, carriage)
	}
	sort.Strings(out)
	return out
}

// IsSubsetOf reports whether this block's legs appear as a contiguous
// sublist of the other block's legs.
func (b Block) IsSubsetOf(o Block) bool {
	if len(b.Legs) > len(o.Legs) {
		return false
	}
	for offset := 0; offset <= len(o.Legs)-len(b.Legs); offset++ {
		if legsEqual(b.Legs, o.Legs[offset:offset+len(b.Legs)]) {
			return true
		}
	}
	return false
}

// IsSupersetOf reports whether the other block's legs appear as a
// contiguous sublist of this block's legs.
func (b Block) IsSupersetOf(o Block) bool {
	return o.IsSubsetOf(b)
}

func legsEqual(a, b []TripSlice) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DeduplicateBlocks drops blocks whose legs are contained in another
// block, keeping only the maximal chains. The same physical chain can
// be discovered from multiple carriage representatives.
//
// Quadratic in the number of blocks; fine only because per-day block
// counts are bounded by daily connection counts.
func DeduplicateBlocks(blocks []Block) []Block {
	var unique []Block

	for _, b := range blocks {
		kept := false
		for i, candidate := range unique {
			if b.IsSubsetOf(candidate) {
				kept = true
				break
			}
			if b.IsSupersetOf(candidate) {
				unique[i] = b
				kept = true
				break
			}
		}
		if !kept {
			unique = append(unique, b)
		}
	}

	return unique
}

// NonLinearBlock reports a connection group whose topology cannot be
// resolved into one simple ordered chain. It is a data-quality
// condition in the source, not a resolver failure: callers log it and
// continue with the remaining chains.
type NonLinearBlock struct {
	Reason        string
	Carriages     []string
	TripIDs       []string
	ConnectionIDs []int
}

func (e *NonLinearBlock) Error() string {
	return fmt.Sprintf(
		"non-linear block (%s): carriages=%s trip_ids=%v connections=%v",
		e.Reason, strings.Join(e.Carriages, "/"), e.TripIDs, e.ConnectionIDs,
	)
}

func nonLinear(reason string, carriages map[string]bool, connections []Connection) *NonLinearBlock {
	e := &NonLinearBlock{Reason: reason}
	for carriage := range carriages {
		e.Carriages = append(e.Carriages, carriage)
	}
	sort.Strings(e.Carriages)

	tripIDs := map[string]bool{}
	for _, c := range connections {
		e.ConnectionIDs = append(e.ConnectionIDs, c.ID)
		tripIDs[c.FromTripID] = true
		tripIDs[c.ToTripID] = true
	}
	for id := range tripIDs {
		e.TripIDs = append(e.TripIDs, id)
	}
	sort.Strings(e.TripIDs)
	sort.Ints(e.ConnectionIDs)
	return e
}

// FindAll partitions the given connections into independent groups
// and resolves each group into blocks. Non-linear chains are returned
// as diagnostics alongside the successfully resolved blocks.
func FindAll(connections []Connection, trips map[string]*TripStops) ([]Block, []*NonLinearBlock, error) {
	groups, err := GroupRelated(connections)
	if err != nil {
		return nil, nil, err
	}

	var blocks []Block
	var diags []*NonLinearBlock
	for _, group := range groups {
		resolved, groupDiags := Resolve(group, trips)
		blocks = append(blocks, resolved...)
		diags = append(diags, groupDiags...)
	}
	return blocks, diags, nil
}

// Resolve turns one independent connection group into blocks, one per
// disjoint carriage subset. A non-linear chain for one carriage
// subset does not abort the resolution of its siblings.
func Resolve(connections []Connection, trips map[string]*TripStops) ([]Block, []*NonLinearBlock) {
	// Fast path for groups of one connection.
	if len(connections) == 1 {
		return []Block{resolveSingle(connections[0], trips)}, nil
	}

	// Route each unique carriage subset through the group's
	// connections.
	carriageSets := DisjointCarriageSets(connections)
	groups := carriageSets.Groups()

	var blocks []Block
	var diags []*NonLinearBlock
	for _, root := range carriageSets.Roots() {
		carriages := make(map[string]bool, len(groups[root]))
		for _, carriage := range groups[root] {
			carriages[carriage] = true
		}

		var subset []Connection
		for _, c := range connections {
			if c.Carriages[root] {
				subset = append(subset, c)
			}
		}

		b, diag := ResolveLinear(subset, trips, carriages)
		if diag != nil {
			diags = append(diags, diag)
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks, diags
}

func resolveSingle(c Connection, trips map[string]*TripStops) Block {
	return Block{
		Legs: []TripSlice{
			trips[c.FromTripID].UpTo(AtStop(c.AtStopID)),
			trips[c.ToTripID].StartingAt(AtStop(c.AtStopID)),
		},
		Carriages: c.Carriages,
	}
}

// ResolveLinear walks a set of connections assumed to form one linear
// chain for the given carriage subset, cutting each trip into legs at
// the switch stops. If the assumption does not hold, a NonLinearBlock
// diagnostic is returned instead.
func ResolveLinear(connections []Connection, trips map[string]*TripStops, carriages map[string]bool) (Block, *NonLinearBlock) {
	// A trip cannot split into two different next-trips for the
	// same carriage subset.
	byFromTrip := make(map[string]Connection, len(connections))
	for _, c := range connections {
		if _, ok := byFromTrip[c.FromTripID]; ok {
			return Block{}, nonLinear("from_trip_id is not unique", carriages, connections)
		}
		byFromTrip[c.FromTripID] = c
	}

	firstTrip, ok := findInitialTrip(connections)
	if !ok {
		return Block{}, nonLinear("no initial trip", carriages, connections)
	}

	// Create legs by following the connections forwards.
	var legs []TripSlice
	conn := byFromTrip[firstTrip]
	delete(byFromTrip, firstTrip)
	legs = append(legs, trips[conn.FromTripID].UpTo(AtStop(conn.AtStopID)))

	for {
		next, ok := byFromTrip[conn.ToTripID]
		if !ok {
			break
		}
		delete(byFromTrip, conn.ToTripID)

		t := trips[next.FromTripID]
		start := t.Resolve(AtStop(conn.AtStopID))
		end := t.Resolve(AtStop(next.AtStopID))
		if start >= end {
			return Block{}, nonLinear(
				fmt.Sprintf("goes backwards on trip %s (%d → %d)", t.TripID, start, end),
				carriages, connections,
			)
		}
		legs = append(legs, TripSlice{TripID: t.TripID, FromStopSeq: start, ToStopSeq: end})

		conn = next
	}

	// Append the last leg.
	legs = append(legs, trips[conn.ToTripID].StartingAt(AtStop(conn.AtStopID)))

	// The walk must have consumed every connection, otherwise the
	// group was not one connected chain for this carriage subset.
	if len(byFromTrip) != 0 {
		return Block{}, nonLinear("is disjoint", carriages, connections)
	}

	return Block{Legs: legs, Carriages: carriages}, nil
}

// findInitialTrip returns the unique from-trip that never appears as
// any connection's to-trip.
func findInitialTrip(connections []Connection) (string, bool) {
	candidates := map[string]bool{}
	for _, c := range connections {
		candidates[c.FromTripID] = true
	}
	for _, c := range connections {
		delete(candidates, c.ToTripID)
	}

	if len(candidates) != 1 {
		return "", false
	}
	for trip := range candidates {
		return trip, true
	}
	return "", false
}
