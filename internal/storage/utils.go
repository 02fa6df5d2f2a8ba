package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/snowtiles/internal/log"
	"github.com/chrissnell/snowtiles/internal/types"
)

// StartHealthMonitor periodically checks a sink until ctx is cancelled
func StartHealthMonitor(ctx context.Context, hm *HealthManager, sink string, checker HealthChecker, interval time.Duration) {
	go func() {
		update := func() {
			h := checker.CheckHealth()
			hm.UpdateHealth(sink, h)
			log.Debugf("updated %s health status: %s", sink, h.Status)
		}

		update()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				update()
			case <-ctx.Done():
				log.Infof("stopping %s health monitor", sink)
				return
			}
		}
	}()
}

// ProcessSnapshots hands every snapshot received on c to processor until ctx is
// cancelled. Failures are logged and recorded in hm; they never stop the loop.
func ProcessSnapshots(ctx context.Context, c <-chan types.GridSnapshot, processor func(types.GridSnapshot) error, sink string, hm *HealthManager) {
	for {
		select {
		case s := <-c:
			if err := processor(s); err != nil {
				log.Errorf("%s sink error at tick %d: %v", sink, s.Tick, err)
				hm.UpdateHealth(sink, CreateHealth(StatusUnhealthy, "write failed", err))
				continue
			}
			hm.UpdateHealth(sink, CreateHealth(StatusHealthy, fmt.Sprintf("stored tick %d", s.Tick), nil))
		case <-ctx.Done():
			log.Infof("cancellation request received. Cancelling %s snapshot processor", sink)
			return
		}
	}
}

// CreateHealth creates a health record stamped with the current time
func CreateHealth(status, message string, err error) *Health {
	h := &Health{
		LastCheck: time.Now(),
		Status:    status,
		Message:   message,
	}
	if err != nil {
		h.Error = err.Error()
	}
	return h
}
