package stepper

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"zigbee-coop-door/internal/hal"
)

// Direction selects which way the door travels.
type Direction int

const (
	Retract Direction = iota // door opens
	Extend                   // door closes
)

func (d Direction) String() string {
	if d == Extend {
		return "extend"
	}
	return "retract"
}

const (
	// StepsToEndstop is the full travel distance in step pulses.
	StepsToEndstop = 100
	// StepInterval is the hold time for each half of a step pulse,
	// giving a 1.6 ms full pulse period.
	StepInterval = 800 * time.Microsecond
)

// ErrBusy is returned when an actuation request arrives while a pulse train
// is already running. The request is rejected, never queued.
var ErrBusy = errors.New("actuation already in progress")

// Sequencer drives the stepper motor through a fixed-length, fixed-speed
// pulse train. At most one pulse train runs at a time.
//
// The enable output is active low: Clear turns the drive on, Set turns it
// off. The drive is disabled on every exit path.
type Sequencer struct {
	step   hal.Pin
	dir    hal.Pin
	enable hal.Pin
	sleep  func(time.Duration)
	busy   atomic.Bool
	logger *slog.Logger
}

// New creates a sequencer over the three motor control lines.
func New(step, dir, enable hal.Pin, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		step:   step,
		dir:    dir,
		enable: enable,
		sleep:  time.Sleep,
		logger: logger.With("component", "stepper"),
	}
}

// Init drives the outputs to their idle levels: direction set, drive disabled.
func (s *Sequencer) Init() {
	s.dir.Set()
	s.enable.Set()
}

// Busy reports whether a pulse train is currently running.
func (s *Sequencer) Busy() bool {
	return s.busy.Load()
}

// Run executes one full travel in the given direction, blocking until the
// pulse train completes (~160 ms). A second call while one is in progress
// returns ErrBusy. Cancelling ctx aborts the pulse loop early; the drive is
// disabled regardless of how the loop exits.
func (s *Sequencer) Run(ctx context.Context, d Direction) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	s.logger.Info("actuation started", "direction", d.String())

	s.enable.Clear()
	defer s.enable.Set()

	if d == Extend {
		s.dir.Set()
	} else {
		s.dir.Clear()
	}

	for i := 0; i < StepsToEndstop; i++ {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("actuation aborted", "direction", d.String(), "step", i, "err", err)
			return err
		}
		s.step.Set()
		s.sleep(StepInterval)
		s.step.Clear()
		s.sleep(StepInterval)
	}

	s.logger.Info("actuation complete", "direction", d.String(), "steps", StepsToEndstop)
	return nil
}
