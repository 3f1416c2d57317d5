package vm

import (
	"io"
	"time"
)

// Timing configuration. Every tick executes one quantum of cycles; an
// interrupt is raised every four quanta when interrupts are enabled.
const (
	TickInterval    = 16777 * time.Microsecond
	CycleQuantum    = 240
	InterruptPeriod = 960
)

// Scheduler paces CPU cycles against the wall clock and raises the
// periodic interrupt. It is driven by a host loop calling Tick.
type Scheduler struct {
	cpu        *CPU
	render     func()
	cycleCount uint64
	last       time.Time
	acc        time.Duration
	running    bool
}

// NewScheduler creates a scheduler for the given CPU. The render
// callback runs at the start of every delivered interrupt.
func NewScheduler(cpu *CPU, render func()) *Scheduler {
	return &Scheduler{cpu: cpu, render: render}
}

// Running returns true while the machine is ticking.
func (s *Scheduler) Running() bool {
	return s.running
}

// Cycles returns the number of cycles executed since the last Run.
func (s *Scheduler) Cycles() uint64 {
	return s.cycleCount
}

// Run resets the cycle counter, loads PC from the reset vector and
// begins ticking.
func (s *Scheduler) Run() {
	s.cycleCount = 0
	s.acc = 0
	s.cpu.SetPC(s.cpu.mem.U16(VectorReset))
	s.resume()
}

// Stop halts the ticker. The current batch, if any, has already run to
// completion of its current cycle.
func (s *Scheduler) Stop() {
	s.running = false
}

// Pause toggles ticking without resetting any state.
func (s *Scheduler) Pause() {
	if s.running {
		s.running = false
	} else {
		s.resume()
	}
}

func (s *Scheduler) resume() {
	s.running = true
	s.last = time.Now()
}

// Tick executes the cycle batches owed since the previous call. The
// host loop calls this once per frame. Accumulated debt is capped so a
// stall does not cause a catch-up stampede.
func (s *Scheduler) Tick(now time.Time) error {
	if !s.running {
		return nil
	}

	s.acc += now.Sub(s.last)
	s.last = now
	if max := 4 * TickInterval; s.acc > max {
		s.acc = max
	}

	for s.acc >= TickInterval && s.running {
		s.acc -= TickInterval
		if err := s.runBatch(); err != nil {
			return err
		}
	}
	return nil
}

// runBatch executes one quantum of cycles.
func (s *Scheduler) runBatch() error {
	for i := 0; i < CycleQuantum && s.running; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one cycle. If the cycle counter crosses the
// interrupt period, one interrupt is dispatched at the cycle boundary:
// the text buffer is rendered, PC is pushed and control transfers to
// the interrupt vector.
func (s *Scheduler) Step() error {
	err := s.cpu.Step()
	s.cycleCount++

	switch {
	case err == io.EOF:
		// hlt: the machine pauses but remains resumable.
		s.running = false
		return nil
	case err != nil:
		s.running = false
		return err
	}

	if s.cycleCount%InterruptPeriod == 0 && s.cpu.IntEnabled() {
		if s.render != nil {
			s.render()
		}
		s.cpu.IRQ()
	}
	return nil
}
