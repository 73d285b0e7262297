package scanner

import (
	"sync/atomic"
	"time"
)

type Stats struct {
	Total      int64
	Processed  int64
	Errors     int64
	Fields     int64
	Secrets    int64
	Discovered int64
	StartTime  time.Time
}

func NewStats(initialTotal int64) *Stats {
	return &Stats{
		Total:     initialTotal,
		StartTime: time.Now(),
	}
}

func (s *Stats) IncrementProcessed() {
	atomic.AddInt64(&s.Processed, 1)
}

func (s *Stats) IncrementErrors() {
	atomic.AddInt64(&s.Errors, 1)
}

func (s *Stats) AddFields(delta int64) {
	atomic.AddInt64(&s.Fields, delta)
}

func (s *Stats) AddSecrets(delta int64) {
	atomic.AddInt64(&s.Secrets, delta)
}

func (s *Stats) SetDiscovered(n int64) {
	atomic.StoreInt64(&s.Discovered, n)
}

func (s *Stats) IncrementTotal(delta int64) {
	atomic.AddInt64(&s.Total, delta)
}

func (s *Stats) GetProcessed() int64 {
	return atomic.LoadInt64(&s.Processed)
}

func (s *Stats) GetErrors() int64 {
	return atomic.LoadInt64(&s.Errors)
}

func (s *Stats) GetFields() int64 {
	return atomic.LoadInt64(&s.Fields)
}

func (s *Stats) GetSecrets() int64 {
	return atomic.LoadInt64(&s.Secrets)
}

func (s *Stats) GetDiscovered() int64 {
	return atomic.LoadInt64(&s.Discovered)
}

func (s *Stats) GetTotal() int64 {
	return atomic.LoadInt64(&s.Total)
}

func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}
