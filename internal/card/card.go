// Package card decodes raw SPORTident card memory into punch records.
package card

import (
	"errors"
	"fmt"
)

// Series identifies the card generation, which fixes the memory layout.
type Series int

const (
	UnknownSeries Series = iota
	Card5
	Card6
	Card8
	Card9
	PCard
	Card10
)

func (s Series) String() string {
	switch s {
	case Card5:
		return "SiCard 5"
	case Card6:
		return "SiCard 6"
	case Card8:
		return "SiCard 8"
	case Card9:
		return "SiCard 9"
	case PCard:
		return "pCard"
	case Card10:
		return "SiCard 10/11/SIAC"
	default:
		return "Unknown"
	}
}

// Time sentinels, in milliseconds.
const (
	// NoTime marks a field the card carries no usable time for.
	NoTime int64 = -1

	// NoSITime is the raw value a card stores when no time was written
	// (0xEEEE seconds, scaled to ms).
	NoSITime int64 = 1000 * 0xEEEE

	// TwelveHours resolves the SiCard 5 AM/PM ambiguity.
	TwelveHours int64 = 12 * 3600 * 1000

	// OneDay resolves the SiCard 6+ day rollover.
	OneDay = 2 * TwelveHours
)

// ErrShortData reports a readout buffer shorter than the card layout
// requires. The driver surfaces it as a processing error and keeps running.
var ErrShortData = errors.New("card data too short")

// Punch is one (control code, time) pair read from the card. Time is
// milliseconds since local midnight, or NoTime.
type Punch struct {
	Code uint16
	Time int64
}

// Record is the decoded content of one card readout. It is produced once
// by a decoder and not modified afterwards.
type Record struct {
	CardNumber string
	Series     Series
	Start      int64
	Finish     int64
	Check      int64
	PunchCount int
	Punches    []Punch
}

func (r *Record) String() string {
	return fmt.Sprintf("%s %s (%d punches)", r.Series, r.CardNumber, r.PunchCount)
}

// FormatTime renders ms-since-midnight as HH:MM:SS, or "--" when the
// card carries no time.
func FormatTime(ms int64) string {
	if ms < 0 {
		return "--"
	}
	secs := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// AdvanceTimePast resolves a raw card time against a running reference.
//
// Card times wrap every 12 hours (SiCard 5) or every day (SiCard 6+); the
// raw value is advanced by step until it lands no more than one hour before
// ref. The one-hour slack tolerates slightly out-of-order punches.
func AdvanceTimePast(raw, ref, step int64) int64 {
	if raw == NoSITime {
		return NoTime
	}
	if ref == NoTime {
		return raw
	}
	for raw < ref-3600000 {
		raw += step
	}
	return raw
}
