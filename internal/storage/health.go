package storage

import (
	"sync"
	"time"
)

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Health is the last known state of one sink
type Health struct {
	LastCheck time.Time `json:"last_check" msgpack:"last_check"`
	Status    string    `json:"status" msgpack:"status"`
	Message   string    `json:"message,omitempty" msgpack:"message,omitempty"`
	Error     string    `json:"error,omitempty" msgpack:"error,omitempty"`
}

// HealthManager keeps sink health in memory for the API to report
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]Health
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]Health),
	}
}

// UpdateHealth records the health of a sink. A nil manager ignores updates.
func (hm *HealthManager) UpdateHealth(sink string, h *Health) {
	if hm == nil || h == nil {
		return
	}
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.health[sink] = *h
}

// GetHealth retrieves the health of one sink
func (hm *HealthManager) GetHealth(sink string) (Health, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	h, ok := hm.health[sink]
	return h, ok
}

// GetAllHealth returns a copy of every sink's health
func (hm *HealthManager) GetAllHealth() map[string]Health {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	result := make(map[string]Health, len(hm.health))
	for k, v := range hm.health {
		result[k] = v
	}
	return result
}

// IsHealthy reports whether a sink was healthy within maxAge
func (hm *HealthManager) IsHealthy(sink string, maxAge time.Duration) bool {
	h, ok := hm.GetHealth(sink)
	if !ok {
		return false
	}
	if time.Since(h.LastCheck) > maxAge {
		return false
	}
	return h.Status == StatusHealthy
}
