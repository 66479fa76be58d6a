// Package entropy provides the seedable randomness source for die rolls
// and chance effects. The state advances explicitly with every draw, so
// a full game replays bit-for-bit from its initial seed.
package entropy

// Source is a splitmix64 sequence. The zero value is a valid source
// seeded with zero; use New for a chosen seed.
type Source struct {
	state uint64
}

// New returns a source seeded with the given value.
func New(seed int64) *Source {
	return &Source{state: uint64(seed)}
}

// Restore rebuilds a source from a previously captured state, for
// resuming a game mid-sequence.
func Restore(state uint64) *Source {
	return &Source{state: state}
}

// State exposes the current internal state for snapshotting.
func (s *Source) State() uint64 { return s.state }

// next advances the sequence one step (splitmix64).
func (s *Source) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// RollDie draws a die value in 1..6.
func (s *Source) RollDie() int {
	return 1 + int(s.next()%6)
}

// ChanceEffect draws a signed cash delta in min..max inclusive.
func (s *Source) ChanceEffect(min, max int) int {
	if min >= max {
		return min
	}
	span := uint64(max - min + 1)
	return min + int(s.next()%span)
}
