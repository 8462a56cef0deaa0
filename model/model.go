package model

import (
	"strconv"
	"time"
)

// Holds all external facing types and constants.

// Controls whether passengers may board or alight at a stop_time.
type PassengerExchange int8

const (
	ExchangeRegular     PassengerExchange = 0
	ExchangeNone        PassengerExchange = 1
	ExchangePhoneAgency PassengerExchange = 2
	ExchangeCoordinated PassengerExchange = 3
)

type TransferType int8

const (
	TransferRecommended TransferType = 0
	TransferTimed       TransferType = 1
	TransferMinTime     TransferType = 2
	TransferNotPossible TransferType = 3
	TransferInSeat      TransferType = 4
)

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	ShortName   string
	BlockID     string
	Carriages   string
	DirectionID int8
}

type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// Calendar dates are ISO formatted (YYYY-MM-DD), matching the date
// prefixes used in trip IDs.
type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
}

// Arrival and Departure are "HHMMSS" strings. Hours may exceed 23 for
// trips running past midnight, and the strings still compare
// chronologically.
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence int
	Arrival      string
	Departure    string
	PickupType   PassengerExchange
	DropOffType  PassengerExchange
}

type Transfer struct {
	FromStopID string
	ToStopID   string
	FromTripID string
	ToTripID   string
	Type       TransferType
}

func (st *StopTime) ArrivalTime() time.Duration {
	return TimeOfDay(st.Arrival)
}

func (st *StopTime) DepartureTime() time.Duration {
	return TimeOfDay(st.Departure)
}

// TimeOfDay converts an "HHMMSS" string into a duration since
// midnight. Hours past 23 are allowed.
func TimeOfDay(s string) time.Duration {
	if len(s) < 6 {
		return 0
	}
	h, _ := strconv.Atoi(s[0:2])
	m, _ := strconv.Atoi(s[2:4])
	sec, _ := strconv.Atoi(s[4:6])
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}
