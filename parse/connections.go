// Package parse reads the carrier's raw carriage-switch export into
// dated connection records.
package parse

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"
	"golang.org/x/text/encoding/charmap"

	"pkpic.dev/gtfs/block"
)

// ConnectionsFileName is the carriage-switch table inside the
// carrier's timetable package.
const ConnectionsFileName = "KPD_Rozklad_Przelaczenia.csv"

// DateRange is an inclusive range of operating dates. Zero bounds are
// open ended.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Contains(d time.Time) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// A connection valid on one concrete operating date. The connection's
// trip IDs carry the date as an ISO prefix.
type DatedConnection struct {
	Day        time.Time
	Connection block.Connection
}

// One row of the export. The "Timetable_no" season label has the form
// "<anything>/<4-digit year>". mth00 holds the day bitmask for
// December of the year before the season's labeled year, mth01..mth12
// for January..December of the labeled year.
type connectionCSV struct {
	FromTrain string `csv:"NrPoc1"`
	ToTrain   string `csv:"NrPoc2"`
	StopID    string `csv:"objectID"`
	Carriages string `csv:"carriageNo"`
	ID        int    `csv:"ID_przelaczenia"`
	Season    string `csv:"Timetable_no"`
	Mth00     string `csv:"mth00"`
	Mth01     string `csv:"mth01"`
	Mth02     string `csv:"mth02"`
	Mth03     string `csv:"mth03"`
	Mth04     string `csv:"mth04"`
	Mth05     string `csv:"mth05"`
	Mth06     string `csv:"mth06"`
	Mth07     string `csv:"mth07"`
	Mth08     string `csv:"mth08"`
	Mth09     string `csv:"mth09"`
	Mth10     string `csv:"mth10"`
	Mth11     string `csv:"mth11"`
	Mth12     string `csv:"mth12"`
}

func (row *connectionCSV) months() [13]string {
	return [13]string{
		row.Mth00, row.Mth01, row.Mth02, row.Mth03, row.Mth04, row.Mth05,
		row.Mth06, row.Mth07, row.Mth08, row.Mth09, row.Mth10, row.Mth11,
		row.Mth12,
	}
}

// ParseConnections reads the semicolon-delimited export and calls fn
// once per (operating date, connection) pair within days. Reading is
// a pure function of the input rows; re-reading the same data yields
// identical results.
func ParseConnections(data io.Reader, days DateRange, fn func(DatedConnection) error) error {
	// LazyCSVReader to survive sloppy quoting, BOM reader to strip
	// unicode BOMs. The export uses semicolons.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(bom.NewReader(in))
		r.Comma = ';'
		r.LazyQuotes = true
		return r
	})

	i := -1
	return gocsv.UnmarshalToCallbackWithError(data, func(row *connectionCSV) error {
		i += 1

		// The source uses "/" inside train numbers, which collides
		// with its use as an ID separator elsewhere in the feed.
		connection := block.NewConnection(
			row.ID,
			strings.ReplaceAll(row.FromTrain, "/", "-"),
			strings.ReplaceAll(row.ToTrain, "/", "-"),
			row.StopID,
			strings.Split(row.Carriages, ",")...,
		)

		dates, err := expandDates(row.Season, row.months())
		if err != nil {
			return errors.Wrapf(err, "expanding dates (row %d)", i+1)
		}

		for _, day := range dates {
			if !days.Contains(day) {
				continue
			}
			dated := DatedConnection{
				Day:        day,
				Connection: connection.WithTripIDPrefix(day.Format("2006-01-02") + "_"),
			}
			if err := fn(dated); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadConnectionArchive opens the timetable package at path, decodes
// the windows-1250 encoded connections table and feeds it through
// ParseConnections.
func ReadConnectionArchive(path string, days DateRange, fn func(DatedConnection) error) error {
	pkg, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer pkg.Close()

	f, err := pkg.Open(ConnectionsFileName)
	if err != nil {
		return fmt.Errorf("opening %s: %w", ConnectionsFileName, err)
	}
	defer f.Close()

	decoded := charmap.Windows1250.NewDecoder().Reader(f)
	return ParseConnections(decoded, days, fn)
}

// expandDates interprets the season label and the 13 fixed-width day
// bitmasks. Character '1' at 1-indexed position d of a bitmask means
// the rule is active on calendar day d of that month.
func expandDates(season string, months [13]string) ([]time.Time, error) {
	_, yearStr, found := strings.Cut(season, "/")
	if !found {
		return nil, fmt.Errorf("malformed season label %q", season)
	}
	var mainYear int
	if _, err := fmt.Sscanf(yearStr, "%d", &mainYear); err != nil {
		return nil, fmt.Errorf("malformed season label %q", season)
	}

	var dates []time.Time
	for monthKey, mask := range months {
		year, month := mainYear, time.Month(monthKey)
		if monthKey == 0 {
			year, month = mainYear-1, time.December
		}

		// Iteration is bounded by the bitmask's own length, never by
		// the calendar month length.
		limit := len(mask)
		if daysIn := daysInMonth(year, month); limit > daysIn {
			limit = daysIn
		}
		for i := 0; i < limit; i++ {
			if mask[i] == '1' {
				dates = append(dates, time.Date(year, month, i+1, 0, 0, 0, 0, time.UTC))
			}
		}
	}
	return dates, nil
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
