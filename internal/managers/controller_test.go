package managers

import (
	"context"
	"sync"
	"testing"

	"github.com/chrissnell/snowtiles/pkg/config"
	"go.uber.org/zap"
)

func TestNewControllerManager(t *testing.T) {
	m, cancel, wg := newManager(t)
	defer func() {
		cancel()
		wg.Wait()
	}()

	tests := []struct {
		name        string
		controllers []config.ControllerData
		wantErr     bool
	}{
		{"none", nil, false},
		{"rest", []config.ControllerData{{Type: "rest", RESTServer: &config.RESTServerData{Port: 18080}}}, false},
		{"restserver alias without block", []config.ControllerData{{Type: "restserver"}}, false},
		{"unknown", []config.ControllerData{{Type: "wunderground"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cwg sync.WaitGroup
			_, err := NewControllerManager(context.Background(), &cwg, tt.controllers, m, zap.NewNop().Sugar())
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
