package bot

import "sync/atomic"

// Status is the running flag shared with the health endpoint.
type Status struct {
	running atomic.Bool
}

func (s *Status) Running() bool { return s.running.Load() }

func (s *Status) Set(running bool) { s.running.Store(running) }
