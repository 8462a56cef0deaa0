// Package block reconstructs maximal chains of trips ("blocks") that
// together form one continuous physical journey for a subset of
// carriages, from pairwise carriage-switch connection records.
package block

import "fmt"

// EndOfTrip marks a TripSlice that runs to the last stop-time of its
// trip.
const EndOfTrip = -1

// TripSlice is a contiguous stop-sequence range of one trip, both
// bounds inclusive. It is a value type: two slices are the same leg
// iff all three fields are equal.
type TripSlice struct {
	TripID      string
	FromStopSeq int
	ToStopSeq   int
}

// A StopRef identifies a position on a trip either by stop ID or by
// an already-resolved stop sequence.
type StopRef struct {
	id    string
	seq   int
	bySeq bool
}

func AtStop(id string) StopRef   { return StopRef{id: id} }
func AtSequence(seq int) StopRef { return StopRef{seq: seq, bySeq: true} }

// TripStops is a per-trip lookup table from stop ID to the smallest
// stop sequence at which the trip calls there. Built once per
// resolution pass and read-only afterwards.
type TripStops struct {
	TripID    string
	seqByStop map[string]int
}

func NewTripStops(tripID string) *TripStops {
	return &TripStops{TripID: tripID, seqByStop: map[string]int{}}
}

// InsertStop records stopID at the given sequence. If the trip calls
// at stopID multiple times, only the first recorded sequence is kept.
func (t *TripStops) InsertStop(seq int, stopID string) {
	if _, ok := t.seqByStop[stopID]; !ok {
		t.seqByStop[stopID] = seq
	}
}

func (t *TripStops) Serves(stopID string) bool {
	_, ok := t.seqByStop[stopID]
	return ok
}

// Sequence returns the recorded stop sequence for stopID.
func (t *TripStops) Sequence(stopID string) (int, bool) {
	seq, ok := t.seqByStop[stopID]
	return seq, ok
}

// Resolve turns a StopRef into a stop sequence on this trip. Panics
// if the referenced stop is not served by the trip; callers are
// expected to have validated connections beforehand.
func (t *TripStops) Resolve(ref StopRef) int {
	if ref.bySeq {
		return ref.seq
	}
	seq, ok := t.seqByStop[ref.id]
	if !ok {
		panic(fmt.Sprintf("block: trip %s does not serve stop %s", t.TripID, ref.id))
	}
	return seq
}

// StopsLater reports whether this trip calls at b strictly after
// calling at a.
func (t *TripStops) StopsLater(a, b StopRef) bool {
	return t.Resolve(a) < t.Resolve(b)
}

// UpTo returns a slice of this trip from its first stop-time up to
// the given stop, inclusive.
func (t *TripStops) UpTo(ref StopRef) TripSlice {
	return TripSlice{TripID: t.TripID, ToStopSeq: t.Resolve(ref)}
}

// StartingAt returns a slice of this trip from the given stop up to
// its last stop-time, inclusive.
func (t *TripStops) StartingAt(ref StopRef) TripSlice {
	return TripSlice{TripID: t.TripID, FromStopSeq: t.Resolve(ref), ToStopSeq: EndOfTrip}
}
