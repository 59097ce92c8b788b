package services

import (
	"log"
	"time"
)

type idleEvictor interface {
	EvictIdle(maxIdle time.Duration) int
}

// SessionSweeper periodically drops idle open sessions from memory.
type SessionSweeper struct {
	engine   idleEvictor
	maxIdle  time.Duration
	interval time.Duration
	stopChan chan struct{}
}

func NewSessionSweeper(engine idleEvictor, maxIdle time.Duration) *SessionSweeper {
	interval := maxIdle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return &SessionSweeper{
		engine:   engine,
		maxIdle:  maxIdle,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (s *SessionSweeper) Start() {
	if s.engine == nil || s.maxIdle <= 0 {
		return
	}
	go s.loop()
	log.Printf("Session sweeper started (idle limit %s)", s.maxIdle)
}

func (s *SessionSweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *SessionSweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *SessionSweeper) sweep() int {
	n := s.engine.EvictIdle(s.maxIdle)
	if n > 0 {
		log.Printf("session sweeper: evicted %d idle session(s)", n)
	}
	return n
}
