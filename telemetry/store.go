package telemetry

import (
	"sync"
	"time"
)

// Measurement is the latest reported state of one plant's gateway.
type Measurement struct {
	PowerPlantID string
	Power        float64
	ReceivedAt   time.Time
}

// Store keeps the most recent measurement per plant. Readers and the MQTT
// message handler run on different goroutines.
type Store struct {
	mu   sync.RWMutex
	data map[string]Measurement
}

func NewStore() *Store {
	return &Store{data: make(map[string]Measurement)}
}

func (s *Store) Set(m Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[m.PowerPlantID] = m
}

// LatestPower reports the last measured power for a plant and when it
// arrived.
func (s *Store) LatestPower(powerPlantID string) (float64, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.data[powerPlantID]
	return m.Power, m.ReceivedAt, ok
}

func (s *Store) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data) > 0
}

func (s *Store) Snapshot() []Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Measurement, 0, len(s.data))
	for _, m := range s.data {
		all = append(all, m)
	}
	return all
}
