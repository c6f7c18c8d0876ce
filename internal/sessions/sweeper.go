package sessions

import (
	"log"
	"sync"
	"time"
)

// Sweeper drives the sweep loop at a fixed interval.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	quit     chan struct{}
	wg       sync.WaitGroup
}

func NewSweeper(manager *Manager, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sweeper{
		manager:  manager,
		interval: interval,
		quit:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Sweeper) Stop() {
	close(s.quit)
	s.wg.Wait()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			expired, ended := s.manager.Sweep()
			if expired > 0 || ended > 0 {
				log.Printf("[SWEEP] expired=%d ended=%d", expired, ended)
			}
		case <-s.quit:
			return
		}
	}
}
