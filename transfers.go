// Package gtfs converts PKP Intercity's raw timetable export into a
// public transit feed, deriving "remain seated" relationships between
// trips from the carrier's carriage-switch table.
package gtfs

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"pkpic.dev/gtfs/block"
	"pkpic.dev/gtfs/model"
	"pkpic.dev/gtfs/parse"
	"pkpic.dev/gtfs/storage"
)

// InSeatTransferGenerator duplicates trips linked together by
// carriage-switch connections, re-slicing their stop times per leg
// and joining consecutive legs with in-seat transfers.
type InSeatTransferGenerator struct {
	Logger *slog.Logger

	// Per original trip ID, so repeated materialization of the
	// same source trip across blocks never collides.
	tripCopyCounters map[string]int
}

func NewInSeatTransferGenerator() *InSeatTransferGenerator {
	return &InSeatTransferGenerator{
		Logger:           slog.Default(),
		tripCopyCounters: map[string]int{},
	}
}

func (g *InSeatTransferGenerator) uniqueTripID(tripID string) string {
	id := fmt.Sprintf("%s_C%d", tripID, g.tripCopyCounters[tripID])
	g.tripCopyCounters[tripID]++
	return id
}

// Run resolves the connection archive at archivePath into blocks and
// materializes them into the store. All writes happen in one
// transaction.
func (g *InSeatTransferGenerator) Run(store storage.Storage, archivePath string) error {
	days, err := activeDateRange(store)
	if err != nil {
		return err
	}

	byDay, err := connectionsByDay(archivePath, days)
	if err != nil {
		return err
	}

	var blocks []block.Block
	for _, day := range sortedDays(byDay) {
		dayBlocks, err := g.blocksForDay(store, byDay[day])
		if err != nil {
			return fmt.Errorf("resolving blocks for %s: %w", day.Format("2006-01-02"), err)
		}
		blocks = append(blocks, dayBlocks...)
	}

	return store.Transaction(func(tx storage.Store) error {
		for _, b := range blocks {
			if err := g.insertBlockTrips(tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

// blocksForDay resolves one operating date's connections into
// deduplicated blocks. Non-linear chains are logged and skipped; they
// never abort sibling chains.
func (g *InSeatTransferGenerator) blocksForDay(store storage.Store, connections []block.Connection) ([]block.Block, error) {
	trips, err := tripStopsForConnections(store, connections)
	if err != nil {
		return nil, err
	}

	valid := connections[:0:0]
	for _, c := range connections {
		if c.IsValid(trips) {
			valid = append(valid, c)
		}
	}

	blocks, diags, err := block.FindAll(valid, trips)
	if err != nil {
		return nil, err
	}
	for _, diag := range diags {
		g.Logger.Warn(
			"skipping non-linear block",
			"reason", diag.Reason,
			"carriages", strings.Join(diag.Carriages, "/"),
			"trip_ids", diag.TripIDs,
			"connections", diag.ConnectionIDs,
		)
	}

	return block.DeduplicateBlocks(blocks), nil
}

// insertBlockTrips materializes one block: a fresh trip copy per leg,
// stop times renumbered from 0 with boundary times flattened, and an
// in-seat transfer between each pair of consecutive legs.
func (g *InSeatTransferGenerator) insertBlockTrips(tx storage.Store, b block.Block) error {
	headsign, err := tx.StopName(b.LastTripID(), b.LastLeg().ToStopSeq)
	if err != nil {
		return err
	}
	carriages := strings.Join(b.SortedCarriages(), "/")

	previousTripID := ""
	for i, leg := range b.Legs {
		isFirst := i == 0
		isLast := i == len(b.Legs)-1

		trip, err := tx.Trip(leg.TripID)
		if err != nil {
			return err
		}
		trip.ID = g.uniqueTripID(trip.ID)
		trip.Headsign = headsign
		trip.Carriages = carriages

		stopTimes, err := tx.StopTimes(leg.TripID, leg.FromStopSeq, leg.ToStopSeq)
		if err != nil {
			return err
		}
		if len(stopTimes) == 0 {
			return fmt.Errorf("empty slice of trip %s (%d..%d)", leg.TripID, leg.FromStopSeq, leg.ToStopSeq)
		}

		// A leg fragment has no arrival from before the leg, nor a
		// departure after it.
		stopTimes[0].Arrival = stopTimes[0].Departure
		stopTimes[len(stopTimes)-1].Departure = stopTimes[len(stopTimes)-1].Arrival

		for j, st := range stopTimes {
			st.TripID = trip.ID
			st.StopSequence = j
		}

		// Passengers continuing in-seat are not alighting at the end
		// of the first leg, nor boarding at the start of the last.
		// The original, undivided trips already offer both exchanges.
		if isFirst {
			stopTimes[len(stopTimes)-1].DropOffType = model.ExchangeNone
		}
		if isLast {
			stopTimes[0].PickupType = model.ExchangeNone
		}

		if err := tx.WriteTrip(trip); err != nil {
			return err
		}
		if err := tx.WriteStopTimes(stopTimes); err != nil {
			return err
		}

		if previousTripID != "" {
			err := tx.WriteTransfer(&model.Transfer{
				FromStopID: stopTimes[0].StopID,
				ToStopID:   stopTimes[0].StopID,
				FromTripID: previousTripID,
				ToTripID:   trip.ID,
				Type:       model.TransferInSeat,
			})
			if err != nil {
				return err
			}
		}

		previousTripID = trip.ID
	}
	return nil
}

// ResolveBlocks resolves the connection archive into blocks without
// writing anything, keyed by ISO operating date. Useful for
// inspecting what a run would materialize.
func (g *InSeatTransferGenerator) ResolveBlocks(store storage.Storage, archivePath string) (map[string][]block.Block, error) {
	days, err := activeDateRange(store)
	if err != nil {
		return nil, err
	}

	byDay, err := connectionsByDay(archivePath, days)
	if err != nil {
		return nil, err
	}

	blocks := map[string][]block.Block{}
	for _, day := range sortedDays(byDay) {
		dayBlocks, err := g.blocksForDay(store, byDay[day])
		if err != nil {
			return nil, err
		}
		if len(dayBlocks) > 0 {
			blocks[day.Format("2006-01-02")] = dayBlocks
		}
	}
	return blocks, nil
}

// activeDateRange bounds connection expansion to dates the feed's
// calendars actually cover.
func activeDateRange(store storage.Store) (parse.DateRange, error) {
	startStr, endStr, err := store.CalendarSpan()
	if err != nil {
		return parse.DateRange{}, err
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return parse.DateRange{}, fmt.Errorf("malformed calendar start date %q: %w", startStr, err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return parse.DateRange{}, fmt.Errorf("malformed calendar end date %q: %w", endStr, err)
	}
	return parse.DateRange{Start: start, End: end}, nil
}

func connectionsByDay(archivePath string, days parse.DateRange) (map[time.Time][]block.Connection, error) {
	byDay := map[time.Time][]block.Connection{}
	err := parse.ReadConnectionArchive(archivePath, days, func(dc parse.DatedConnection) error {
		byDay[dc.Day] = append(byDay[dc.Day], dc.Connection)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return byDay, nil
}

func sortedDays(byDay map[time.Time][]block.Connection) []time.Time {
	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// tripStopsForConnections builds the stop lookup for every trip
// mentioned by the given connections. Trips without stop times end up
// with an empty lookup, failing connection validation later.
func tripStopsForConnections(store storage.Store, connections []block.Connection) (map[string]*block.TripStops, error) {
	trips := map[string]*block.TripStops{}
	for _, c := range connections {
		for _, tripID := range []string{c.FromTripID, c.ToTripID} {
			if _, ok := trips[tripID]; ok {
				continue
			}
			ts := block.NewTripStops(tripID)
			seqs, err := store.TripStopSequences(tripID)
			if err != nil {
				return nil, err
			}
			for _, s := range seqs {
				ts.InsertStop(s.Sequence, s.StopID)
			}
			trips[tripID] = ts
		}
	}
	return trips, nil
}
