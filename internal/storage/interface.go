// Package storage defines the telemetry sink interface and the helpers shared by
// the sink implementations.
package storage

import (
	"context"
	"sync"

	"github.com/chrissnell/snowtiles/internal/types"
)

// StorageEngineInterface is an interface that provides a few standardized
// methods for various telemetry sinks
type StorageEngineInterface interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- types.GridSnapshot
}

// HealthChecker is implemented by sinks that can check their backend
type HealthChecker interface {
	CheckHealth() *Health
}
