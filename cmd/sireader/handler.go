package main

import (
	"fmt"
	"sync/atomic"

	"github.com/tmerle/sireader/internal/card"
	"github.com/tmerle/sireader/internal/course"
	"github.com/tmerle/sireader/internal/driver"
	"github.com/tmerle/sireader/internal/tracelog"
)

// consoleHandler prints driver activity for the terminal user and, when
// courses are configured, validates each card as it is read.
type consoleHandler struct {
	courses []*course.Course
	verbose bool
	fatal   atomic.Bool
}

func newConsoleHandler(courses []*course.Course, verbose bool) *consoleHandler {
	return &consoleHandler{courses: courses, verbose: verbose}
}

func (h *consoleHandler) Status(state driver.State, msg string) {
	if state == driver.FatalError {
		h.fatal.Store(true)
	}
	if msg != "" {
		fmt.Printf("<< %s: %s\n", state, msg)
		return
	}
	fmt.Printf("<< %s\n", state)
}

func (h *consoleHandler) Log(dir driver.Direction, text string) {
	if !h.verbose && (dir == driver.Send || dir == driver.Read) {
		return
	}
	fmt.Printf("%-5s %s\n", dir, text)
}

func (h *consoleHandler) CardRead(rec *card.Record) {
	fmt.Printf("%s %s  start %s  finish %s\n",
		rec.Series, rec.CardNumber, card.FormatTime(rec.Start), card.FormatTime(rec.Finish))
	for _, p := range rec.Punches {
		fmt.Printf("  %3d  %s\n", p.Code, card.FormatTime(p.Time))
	}

	if len(h.courses) == 0 {
		return
	}
	res, err := course.AutoDetect(h.courses, rec.Punches)
	if err != nil {
		return
	}
	verdict := "OK"
	if !res.AllCorrect {
		verdict = fmt.Sprintf("MP (%d missing)", res.MissingCount)
	}
	fmt.Printf("  course %s: %s, race time %s\n",
		res.Course.Name, verdict, card.FormatTime(course.RaceTime(res.Course, rec)))
}

func (h *consoleHandler) sawFatal() bool { return h.fatal.Load() }

// traceHandler routes the protocol log stream into the trace writer.
type traceHandler struct {
	w *tracelog.Writer
}

func (t traceHandler) Status(state driver.State, msg string) {
	t.w.Record("STATUS", state.String()+" "+msg)
}

func (t traceHandler) Log(dir driver.Direction, text string) {
	t.w.Record(dir.String(), text)
}

func (t traceHandler) CardRead(rec *card.Record) {
	t.w.Record("CARD", rec.String())
}

// multiHandler fans driver events out to several handlers in order.
type multiHandler []driver.Handler

func (m multiHandler) Status(state driver.State, msg string) {
	for _, h := range m {
		h.Status(state, msg)
	}
}

func (m multiHandler) Log(dir driver.Direction, text string) {
	for _, h := range m {
		h.Log(dir, text)
	}
}

func (m multiHandler) CardRead(rec *card.Record) {
	for _, h := range m {
		h.CardRead(rec)
	}
}
