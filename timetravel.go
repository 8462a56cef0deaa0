package gtfs

import (
	"log/slog"
	"strings"
	"time"

	"pkpic.dev/gtfs/model"
	"pkpic.dev/gtfs/storage"
)

// TimeTravelFixer repairs in-seat transfers that appear to go
// backwards in time. These show up when a block crosses a day
// boundary: the continuation trip exists, but under the next day's
// date prefix. Each broken transfer is re-linked to the same pair of
// trains one calendar day later when the stops and timing line up;
// otherwise the transfer is dropped, along with the orphaned
// continuation trip if nothing else references it.
type TimeTravelFixer struct {
	Logger *slog.Logger
}

func NewTimeTravelFixer() *TimeTravelFixer {
	return &TimeTravelFixer{Logger: slog.Default()}
}

// Identifies a physical train: operating date (ISO) plus train
// number, both taken from the "YYYY-MM-DD_<number>_..." trip ID
// shape.
type trainKey struct {
	date   string
	number string
}

func trainKeyOf(tripID string) trainKey {
	parts := strings.SplitN(tripID, "_", 3)
	key := trainKey{date: parts[0]}
	if len(parts) > 1 {
		key.number = parts[1]
	}
	return key
}

func (k trainKey) nextDay() trainKey {
	d, err := time.Parse("2006-01-02", k.date)
	if err != nil {
		return trainKey{number: k.number}
	}
	return trainKey{
		date:   d.AddDate(0, 0, 1).Format("2006-01-02"),
		number: k.number,
	}
}

type timedTransfer struct {
	t *model.Transfer

	// Latest departure of the from-trip and earliest arrival of
	// the to-trip.
	fromTime time.Duration
	toTime   time.Duration
}

func (tt timedTransfer) timeTravels() bool {
	return tt.toTime < tt.fromTime
}

func (tt timedTransfer) keyPair() [2]trainKey {
	return [2]trainKey{trainKeyOf(tt.t.FromTripID), trainKeyOf(tt.t.ToTripID)}
}

func (f *TimeTravelFixer) Run(store storage.Storage) error {
	tripsUsedInFromTransfers, err := store.TransferFromTripIDs()
	if err != nil {
		return err
	}

	broken, err := f.transfersToProcess(store)
	if err != nil {
		return err
	}

	// If the transfer from trip A to trip B on day X is broken, the
	// transfer from A' to B' on day X+1 is broken too, so A can be
	// re-linked to B', A' to B'' and so on.
	byKeyPair := make(map[[2]trainKey]timedTransfer, len(broken))
	for _, t := range broken {
		byKeyPair[t.keyPair()] = t
	}

	var fixed []*model.Transfer
	var tripsToRemove []string

	for _, t := range broken {
		pair := t.keyPair()
		next, ok := byKeyPair[[2]trainKey{pair[0].nextDay(), pair[1].nextDay()}]

		nextWouldBeValid := ok &&
			t.t.FromStopID == next.t.FromStopID &&
			t.t.ToStopID == next.t.ToStopID &&
			t.fromTime < next.toTime+24*time.Hour

		if nextWouldBeValid {
			f.Logger.Debug("relinking", "from", t.t.FromTripID, "to", next.t.ToTripID)
			relinked := *t.t
			relinked.ToTripID = next.t.ToTripID
			fixed = append(fixed, &relinked)
		} else if !tripsUsedInFromTransfers[t.t.ToTripID] {
			f.Logger.Debug("unable to fix, removing orphaned trip",
				"from", t.t.FromTripID, "trip", t.t.ToTripID)
			tripsToRemove = append(tripsToRemove, t.t.ToTripID)
		} else {
			f.Logger.Debug("unable to fix", "from", t.t.FromTripID)
		}
	}

	if len(broken) > 0 {
		f.Logger.Info("relinked time travelling in-seat transfers",
			"relinked", len(fixed),
			"total", len(broken),
		)
	}

	return store.Transaction(func(tx storage.Store) error {
		for _, t := range broken {
			if err := tx.DeleteTransfer(t.t.FromTripID, t.t.ToTripID); err != nil {
				return err
			}
		}
		for _, t := range fixed {
			if err := tx.WriteTransfer(t); err != nil {
				return err
			}
		}
		for _, tripID := range tripsToRemove {
			if err := tx.DeleteTrip(tripID); err != nil {
				return err
			}
		}
		return nil
	})
}

// transfersToProcess returns all in-seat transfers whose computed
// arrival is chronologically after the continuation trip's start.
func (f *TimeTravelFixer) transfersToProcess(store storage.Store) ([]timedTransfer, error) {
	transfers, err := store.Transfers(model.TransferInSeat)
	if err != nil {
		return nil, err
	}

	var broken []timedTransfer
	for _, t := range transfers {
		end, err := store.TripEnd(t.FromTripID)
		if err != nil {
			return nil, err
		}
		start, err := store.TripStart(t.ToTripID)
		if err != nil {
			return nil, err
		}

		timed := timedTransfer{
			t:        t,
			fromTime: model.TimeOfDay(end),
			toTime:   model.TimeOfDay(start),
		}
		if timed.timeTravels() {
			broken = append(broken, timed)
		}
	}
	return broken, nil
}
