package logsink

import (
	"testing"

	"github.com/chrissnell/snowtiles/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogsEveryNthTick(t *testing.T) {
	tests := []struct {
		name  string
		every int
		want  int
	}{
		{"every tick", 1, 10},
		{"zero means every tick", 0, 10},
		{"every third", 3, 3},
		{"longer than the run", 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			s := New(tt.every, zap.New(core).Sugar(), nil)
			for tick := int64(1); tick <= 10; tick++ {
				if err := s.StoreSnapshot(types.GridSnapshot{Tick: tick}); err != nil {
					t.Fatal(err)
				}
			}
			if got := logs.Len(); got != tt.want {
				t.Errorf("logged %d entries, want %d", got, tt.want)
			}
		})
	}
}

func TestLogFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(1, zap.New(core).Sugar(), nil)
	s.StoreSnapshot(types.GridSnapshot{
		RunID:   "r1",
		Tick:    4,
		Summary: types.Summary{Tiles: 100, SnowCovered: 60, SWE: types.Stats{Mean: 1.5}},
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["run"] != "r1" || fields["tick"] != int64(4) || fields["snow_covered"] != int64(60) || fields["mean_swe_mm"] != 1.5 {
		t.Errorf("unexpected fields %v", fields)
	}
}
