package card

import (
	"fmt"
	"strconv"
)

// BlockSize is the size of one SiCard 6+ readout block. The driver
// concatenates the data region of each block response into a single buffer.
const BlockSize = 128

// layout gives the memory offsets of a SiCard 6+ series. Time fields and
// punches are 4-byte pages: byte 0 carries the AM/PM bit and the two high
// code bits, byte 1 the low code byte, bytes 2-3 the 12-hour seconds word.
type layout struct {
	series       Series
	cardNumber   int
	startTime    int
	finishTime   int
	checkTime    int
	punchCount   int
	punchesStart int // page index, ×pageSize bytes
}

const pageSize = 4

var card6Layout = layout{
	series:       Card6,
	cardNumber:   11,
	startTime:    24,
	finishTime:   20,
	checkTime:    28,
	punchCount:   18,
	punchesStart: 32,
}

// si8SeriesPage is the byte whose low nibble discriminates the SiCard 8+
// series and fixes where the punch pages begin.
const si8SeriesPage = 24

func card8PlusLayout(data []byte) layout {
	l := layout{
		cardNumber: 25,
		startTime:  12,
		finishTime: 16,
		checkTime:  8,
		punchCount: 22,
	}
	switch data[si8SeriesPage] & 0x0F {
	case 2:
		l.series, l.punchesStart = Card8, 34
	case 1:
		l.series, l.punchesStart = Card9, 14
	case 4:
		l.series, l.punchesStart = PCard, 44
	case 15:
		l.series, l.punchesStart = Card10, 32
	default:
		l.series, l.punchesStart = UnknownSeries, 0
	}
	return l
}

// DecodeCard6 parses a concatenated SiCard 6 block buffer.
func DecodeCard6(data []byte, zeroHour int64) (*Record, error) {
	return decodeLayout(data, card6Layout, zeroHour)
}

// DecodeCard8Plus parses a concatenated buffer of any SiCard 8 or newer,
// reading the series discriminator to locate the punch pages.
func DecodeCard8Plus(data []byte, zeroHour int64) (*Record, error) {
	if len(data) <= si8SeriesPage {
		return nil, fmt.Errorf("%w: need %d bytes for the series byte, got %d", ErrShortData, si8SeriesPage+1, len(data))
	}
	return decodeLayout(data, card8PlusLayout(data), zeroHour)
}

func decodeLayout(data []byte, l layout, zeroHour int64) (*Record, error) {
	if len(data) < BlockSize {
		return nil, fmt.Errorf("%w: header block is %d bytes, got %d", ErrShortData, BlockSize, len(data))
	}

	punchCount := int(data[l.punchCount])
	needed := (l.punchesStart + punchCount) * pageSize
	if len(data) < needed {
		return nil, fmt.Errorf("%w: %d punches need %d bytes, got %d", ErrShortData, punchCount, needed, len(data))
	}

	number := uint32(data[l.cardNumber])<<16 | uint32(data[l.cardNumber+1])<<8 | uint32(data[l.cardNumber+2])

	rec := &Record{
		CardNumber: strconv.FormatUint(uint64(number), 10),
		Series:     l.series,
		PunchCount: punchCount,
		Punches:    make([]Punch, 0, punchCount),
	}

	rec.Start = AdvanceTimePast(pageTime(data, l.startTime), zeroHour, OneDay)
	rec.Check = AdvanceTimePast(pageTime(data, l.checkTime), zeroHour, OneDay)

	ref := zeroHour
	if rec.Start > ref {
		ref = rec.Start
	}

	for i := 0; i < punchCount; i++ {
		offset := (l.punchesStart + i) * pageSize
		t := AdvanceTimePast(pageTime(data, offset), ref, OneDay)
		if t != NoTime {
			ref = t
		}
		rec.Punches = append(rec.Punches, Punch{Code: pageCode(data, offset), Time: t})
	}

	rec.Finish = AdvanceTimePast(pageTime(data, l.finishTime), ref, OneDay)
	return rec, nil
}

// pageTime extracts the time of a 4-byte page: the AM/PM bit folds the
// 12-hour seconds word into a full day.
func pageTime(data []byte, offset int) int64 {
	raw12 := 1000 * (int64(data[offset+2])<<8 | int64(data[offset+3]))
	if raw12 == NoSITime {
		return NoSITime
	}
	pm := int64(data[offset] & 1)
	return pm*TwelveHours + raw12
}

// pageCode extracts the 10-bit control code of a 4-byte page.
func pageCode(data []byte, offset int) uint16 {
	return uint16(data[offset]&0xC0)<<2 | uint16(data[offset+1])
}
