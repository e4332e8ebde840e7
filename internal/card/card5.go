package card

import (
	"fmt"
	"strconv"
)

// SiCard 5 memory offsets within its single 128-byte block.
const (
	si5CardNumber   = 0x04
	si5CardSeries   = 0x06
	si5StartTime    = 0x13
	si5FinishTime   = 0x15
	si5PunchCount   = 0x17
	si5CheckTime    = 0x19
	si5NoTimePunch  = 0x20
	si5TimedPunches = 0x21
	si5MaxTimed     = 30
)

// Card5BlockSize is the size of the single SiCard 5 memory block.
const Card5BlockSize = 128

// DecodeCard5 parses the 128-byte SiCard 5 block. zeroHour is the event's
// midnight anchor in ms and seeds the 12-hour disambiguation.
//
// The card stores up to 30 timed punches in five-slot pages of 16 bytes;
// punches beyond the 30th keep only their control code.
func DecodeCard5(data []byte, zeroHour int64) (*Record, error) {
	if len(data) < Card5BlockSize {
		return nil, fmt.Errorf("%w: SiCard 5 block is %d bytes, got %d", ErrShortData, Card5BlockSize, len(data))
	}

	number := uint32(data[si5CardNumber])<<8 | uint32(data[si5CardNumber+1])
	if cns := uint32(data[si5CardSeries]); cns > 1 {
		number += cns * 100000
	}

	punchCount := int(data[si5PunchCount]) - 1
	if punchCount < 0 {
		punchCount = 0
	}

	rec := &Record{
		CardNumber: strconv.FormatUint(uint64(number), 10),
		Series:     Card5,
		PunchCount: punchCount,
		Punches:    make([]Punch, 0, punchCount),
	}

	rec.Start = AdvanceTimePast(rawWord(data, si5StartTime), zeroHour, TwelveHours)
	rec.Check = AdvanceTimePast(rawWord(data, si5CheckTime), zeroHour, TwelveHours)

	ref := zeroHour
	if rec.Start > ref {
		ref = rec.Start
	}

	timed := punchCount
	if timed > si5MaxTimed {
		timed = si5MaxTimed
	}
	for i := 0; i < timed; i++ {
		offset := si5TimedPunches + (i/5)*0x10 + (i%5)*3
		code := uint16(data[offset])
		t := AdvanceTimePast(rawWord(data, offset+1), ref, TwelveHours)
		if t != NoTime {
			ref = t
		}
		rec.Punches = append(rec.Punches, Punch{Code: code, Time: t})
	}

	// Beyond 30 punches the card records the code only, one per page.
	for j := 0; j < punchCount-si5MaxTimed; j++ {
		code := uint16(data[si5NoTimePunch+j*0x10])
		rec.Punches = append(rec.Punches, Punch{Code: code, Time: NoTime})
	}

	rec.Finish = AdvanceTimePast(rawWord(data, si5FinishTime), ref, TwelveHours)
	return rec, nil
}

// rawWord reads a 16-bit big-endian seconds value and scales it to ms.
func rawWord(data []byte, offset int) int64 {
	return 1000 * (int64(data[offset])<<8 | int64(data[offset+1]))
}
