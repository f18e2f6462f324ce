package gps

import "sync"

// Store holds the most recent fix for readers polling from another
// goroutine. The serial reader writes at the receiver's rate (typically
// 1 to 10 Hz) and the fusion loop reads at 100 Hz.
type Store struct {
	mu   sync.Mutex
	fix  Fix
	have bool
}

// Set replaces the latest fix.
func (s *Store) Set(f Fix) {
	s.mu.Lock()
	s.fix = f
	s.have = true
	s.mu.Unlock()
}

// Latest returns the most recent fix and whether one has arrived yet.
func (s *Store) Latest() (Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fix, s.have
}
