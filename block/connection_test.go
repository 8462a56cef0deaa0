package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tripStopsOf(tripID string, stops ...string) *TripStops {
	ts := NewTripStops(tripID)
	for i, stop := range stops {
		ts.InsertStop(i, stop)
	}
	return ts
}

func TestTripStopsOrdering(t *testing.T) {
	ts := tripStopsOf("T1", "S1", "S2", "S3")

	assert.True(t, ts.StopsLater(AtStop("S1"), AtStop("S3")))
	assert.False(t, ts.StopsLater(AtStop("S3"), AtStop("S1")))
	assert.False(t, ts.StopsLater(AtStop("S2"), AtStop("S2")))

	// Stop references and raw sequences mix freely.
	assert.True(t, ts.StopsLater(AtSequence(0), AtStop("S2")))
	assert.True(t, ts.StopsLater(AtStop("S1"), AtSequence(2)))

	assert.Panics(t, func() { ts.Resolve(AtStop("S9")) })
}

func TestConnectionIsValid(t *testing.T) {
	trips := map[string]*TripStops{
		"T1": tripStopsOf("T1", "S1", "S2"),
		"T2": tripStopsOf("T2", "S2", "S3"),
	}

	assert.True(t, NewConnection(1, "T1", "T2", "S2", "1").IsValid(trips))

	// Stop not served by both trips.
	assert.False(t, NewConnection(2, "T1", "T2", "S1", "1").IsValid(trips))
	assert.False(t, NewConnection(3, "T1", "T2", "S3", "1").IsValid(trips))

	// Unknown trip.
	assert.False(t, NewConnection(4, "T1", "T9", "S2", "1").IsValid(trips))
}

func TestDeduplicate(t *testing.T) {
	deduped := Deduplicate([]Connection{
		NewConnection(7, "T1", "T2", "S0", "1", "2"),
		NewConnection(2, "T1", "T2", "S0", "2", "3"),
		NewConnection(5, "T3", "T4", "S1", "8"),
	})

	require.Len(t, deduped, 2)

	// Same (from, to, stop): lowest id, union of carriages.
	assert.Equal(t, 2, deduped[0].ID)
	assert.Equal(t, []string{"1", "2", "3"}, deduped[0].SortedCarriages())
	assert.Equal(t, "T1", deduped[0].FromTripID)

	assert.Equal(t, 5, deduped[1].ID)
	assert.Equal(t, []string{"8"}, deduped[1].SortedCarriages())
}

func TestDeduplicateIdempotent(t *testing.T) {
	conns := []Connection{
		NewConnection(1, "T1", "T2", "S0", "1"),
		NewConnection(2, "T1", "T2", "S0", "2"),
	}
	once := Deduplicate(conns)
	twice := Deduplicate(once)
	assert.Equal(t, once, twice)
}

func TestGroupRelated(t *testing.T) {
	groups, err := GroupRelated([]Connection{
		// Chain sharing trip T2 and carriage "1".
		NewConnection(1, "T1", "T2", "S1", "1", "2"),
		NewConnection(2, "T2", "T3", "S2", "1"),

		// Shares trip T3 but no carriages: independent.
		NewConnection(3, "T3", "T4", "S3", "9"),

		// Shares carriages but no trips: independent.
		NewConnection(4, "T8", "T9", "S4", "1", "2"),
	})
	require.NoError(t, err)
	require.Len(t, groups, 3)

	ids := func(group []Connection) []int {
		out := []int{}
		for _, c := range group {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []int{1, 2}, ids(groups[0]))
	assert.Equal(t, []int{3}, ids(groups[1]))
	assert.Equal(t, []int{4}, ids(groups[2]))
}

func TestGroupRelatedDuplicateID(t *testing.T) {
	_, err := GroupRelated([]Connection{
		NewConnection(1, "T1", "T2", "S1", "1"),
		NewConnection(1, "T3", "T4", "S2", "2"),
	})
	assert.Error(t, err)
}

func TestDisjointCarriageSets(t *testing.T) {
	// Carriages 1 and 2 ride the same two connections; carriage 3
	// leaves after the first one.
	sets := DisjointCarriageSets([]Connection{
		NewConnection(1, "T1", "T2", "S1", "1", "2", "3"),
		NewConnection(2, "T2", "T3", "S2", "1", "2"),
	})

	groups := sets.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"1", "2"}, groups[sets.FindRoot("1")])
	assert.Equal(t, []string{"3"}, groups[sets.FindRoot("3")])
}

func TestDisjointCarriageSetsOverlapIsNotIdentity(t *testing.T) {
	// Overlapping but non-identical connection sets must not merge.
	sets := DisjointCarriageSets([]Connection{
		NewConnection(1, "T1", "T2", "S1", "1", "2"),
		NewConnection(2, "T2", "T3", "S2", "2"),
	})

	assert.NotEqual(t, sets.FindRoot("1"), sets.FindRoot("2"))
}
