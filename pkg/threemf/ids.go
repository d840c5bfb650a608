package threemf

import (
	"errors"
	"fmt"
	"math"
)

// ErrResourceIDOverflow is returned when an ID factory is exhausted.
var ErrResourceIDOverflow = errors.New("resource id out of bound")

// IDFactory hands out resource IDs.
type IDFactory interface {
	Next() (int, error)
	Reset()
}

// IncrementalIDFactory counts from a start value in fixed steps up to an
// inclusive bound.
type IncrementalIDFactory struct {
	from, to, step int
	next           int
	done           bool
}

// NewIncrementalIDFactory creates a factory. step <= 0 is treated as 1.
func NewIncrementalIDFactory(from, to, step int) *IncrementalIDFactory {
	if step <= 0 {
		step = 1
	}
	return &IncrementalIDFactory{from: from, to: to, step: step, next: from}
}

// DefaultIDFactory counts 1, 2, 3, ... up to the largest 32-bit value.
func DefaultIDFactory() *IncrementalIDFactory {
	return NewIncrementalIDFactory(1, math.MaxInt32, 1)
}

// Next returns the next ID, or ErrResourceIDOverflow once the bound is
// passed.
func (f *IncrementalIDFactory) Next() (int, error) {
	if f.done || f.next > f.to {
		return 0, fmt.Errorf("%w: next id past %d", ErrResourceIDOverflow, f.to)
	}
	id := f.next
	// Stop before next += step can pass the bound or wrap around.
	if uint(f.to)-uint(id) < uint(f.step) {
		f.done = true
	} else {
		f.next += f.step
	}
	return id, nil
}

// Reset restarts the sequence.
func (f *IncrementalIDFactory) Reset() {
	f.next = f.from
	f.done = false
}
