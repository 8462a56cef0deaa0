// Package storage persists trips, stop times and transfers behind a
// narrow repository interface, with SQLite and Postgres backends.
package storage

import (
	"errors"

	"pkpic.dev/gtfs/model"
)

var ErrNotFound = errors.New("not found")

// One (stop_sequence, stop_id) pair of a trip.
type StopSeq struct {
	Sequence int
	StopID   string
}

// Store is the repository surface used by the transfer pipeline. All
// list results are fully materialized before being returned.
type Store interface {
	// Retrieves a trip row by ID. Returns ErrNotFound if no such
	// trip exists.
	Trip(id string) (*model.Trip, error)

	WriteTrip(trip *model.Trip) error

	// Deletes a trip and its stop times.
	DeleteTrip(id string) error

	// Bulk-assigns block IDs. Each assignment is a
	// (block ID, trip ID) pair.
	UpdateBlockIDs(assignments [][2]string) error

	// All (stop_sequence, stop_id) pairs of a trip, ordered by
	// stop_sequence.
	TripStopSequences(tripID string) ([]StopSeq, error)

	// Stop-time rows of a trip with fromSeq <= stop_sequence <=
	// toSeq, ordered by stop_sequence. Pass toSeq < 0 to read to
	// the end of the trip.
	StopTimes(tripID string, fromSeq, toSeq int) ([]*model.StopTime, error)

	WriteStopTimes(stopTimes []*model.StopTime) error

	// Display name of the stop a trip calls at with the given
	// stop_sequence. Pass seq < 0 for the trip's final stop.
	StopName(tripID string, seq int) (string, error)

	// Earliest arrival ("HHMMSS") over a trip's stop times.
	TripStart(tripID string) (string, error)

	// Latest departure ("HHMMSS") over a trip's stop times.
	TripEnd(tripID string) (string, error)

	WriteStop(stop *model.Stop) error

	WriteCalendar(cal *model.Calendar) error

	// Minimum start date and maximum end date over all calendars,
	// ISO formatted. Errors if no calendars exist.
	CalendarSpan() (string, string, error)

	WriteTransfer(transfer *model.Transfer) error

	// All transfer rows of the given type.
	Transfers(typ model.TransferType) ([]*model.Transfer, error)

	// Set of from_trip_id over all transfers, regardless of type.
	TransferFromTripIDs() (map[string]bool, error)

	DeleteTransfer(fromTripID, toTripID string) error
}

type Storage interface {
	Store

	// Runs fn within a single transaction: committed if fn
	// returns nil, rolled back otherwise.
	Transaction(fn func(tx Store) error) error

	Close() error
}
