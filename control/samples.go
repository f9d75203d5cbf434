// File: control/samples.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-capacity ring of recent samples with an on-demand mean.

package control

// AverageCapacity is the number of most recent samples kept per average.
const AverageCapacity = 30

// Samples holds up to AverageCapacity samples in arrival order.
// Pushing into a full ring overwrites the oldest sample.
type Samples struct {
	items [AverageCapacity]float32
	begin int
	count int
}

// Cap returns the fixed capacity.
func (s *Samples) Cap() int {
	return len(s.items)
}

// Len returns the number of samples currently held.
func (s *Samples) Len() int {
	return s.count
}

// At returns the i-th oldest sample. Panics if i is out of range.
func (s *Samples) At(i int) float32 {
	if i < 0 || i >= s.count {
		panic("control: sample index out of range")
	}
	return s.items[(s.begin+i)%len(s.items)]
}

// Push appends a sample, evicting the oldest one when full.
func (s *Samples) Push(v float32) {
	s.items[(s.begin+s.count)%len(s.items)] = v
	if s.count < len(s.items) {
		s.count++
	} else {
		s.begin = (s.begin + 1) % len(s.items)
	}
}

// Average returns the mean of the held samples, 0 when empty.
func (s *Samples) Average() float32 {
	if s.count == 0 {
		return 0
	}
	var sum float32
	for i := 0; i < s.count; i++ {
		sum += s.At(i)
	}
	return sum / float32(s.count)
}

