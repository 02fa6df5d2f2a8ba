package forcing

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/config"
)

// Segment holds one forcing for Duration of simulated time.
type Segment struct {
	Duration time.Duration
	Forcing  types.Forcing
}

// Schedule plays segments back to back from start. Before start the first segment
// applies; after the last segment ends the last one is held.
type Schedule struct {
	start    time.Time
	segments []Segment
	ends     []time.Time
}

// NewSchedule validates every segment before accepting the schedule.
func NewSchedule(start time.Time, segments []Segment) (*Schedule, error) {
	if len(segments) == 0 {
		return nil, &types.ConfigurationError{Field: "forcing.schedule", Reason: "needs at least one segment"}
	}

	s := &Schedule{start: start, segments: segments, ends: make([]time.Time, len(segments))}
	end := start
	for i, seg := range segments {
		if seg.Duration <= 0 {
			return nil, &types.ConfigurationError{Field: fmt.Sprintf("forcing.schedule[%d].duration", i), Reason: "must be positive"}
		}
		if err := seg.Forcing.Validate(); err != nil {
			return nil, fmt.Errorf("schedule segment %d: %w", i, err)
		}
		end = end.Add(seg.Duration)
		s.ends[i] = end
	}
	return s, nil
}

// NewScheduleFromConfig parses configured segments.
func NewScheduleFromConfig(segs []config.ScheduleSegment, start time.Time) (*Schedule, error) {
	segments := make([]Segment, len(segs))
	for i, seg := range segs {
		d, err := time.ParseDuration(seg.Duration)
		if err != nil {
			return nil, &types.ConfigurationError{Field: fmt.Sprintf("forcing.schedule[%d].duration", i), Reason: err.Error()}
		}
		segments[i] = Segment{Duration: d, Forcing: FromValues(seg.ForcingValues)}
	}
	return NewSchedule(start, segments)
}

func (s *Schedule) Forcing(ctx context.Context, t time.Time) (types.Forcing, error) {
	for i, end := range s.ends {
		if t.Before(end) {
			return s.segments[i].Forcing, nil
		}
	}
	return s.segments[len(s.segments)-1].Forcing, nil
}

// End returns the instant the last segment finishes.
func (s *Schedule) End() time.Time { return s.ends[len(s.ends)-1] }

func (s *Schedule) Close() error { return nil }
