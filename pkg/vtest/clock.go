package vtest

import "github.com/vango-dev/vstore/pkg/binding"

// FakeClock is a binding.ManualClock; tests advance it explicitly.
type FakeClock = binding.ManualClock

// NewFakeClock returns a clock at time zero.
func NewFakeClock() *FakeClock {
	return binding.NewManualClock()
}
