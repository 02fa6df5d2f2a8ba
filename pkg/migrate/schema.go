package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var stepFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// Schema is one set of versioned SQL steps compiled into the binary, plus the
// table that records which of them a database has applied. Each database file
// the simulator writes (the telemetry sink, the configuration store) owns one.
type Schema struct {
	Name  string
	FS    fs.FS
	Dir   string
	Table string
}

// Step is a single schema version. Both directions are required so any version
// can be rolled back.
type Step struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Steps reads NNN_name.up.sql / NNN_name.down.sql pairs from the schema's
// directory. Versions must run 1, 2, 3... without gaps.
func (s Schema) Steps() ([]Step, error) {
	entries, err := fs.ReadDir(s.FS, s.Dir)
	if err != nil {
		return nil, fmt.Errorf("%s schema: reading %s: %w", s.Name, s.Dir, err)
	}

	byVersion := map[int]*Step{}
	for _, e := range entries {
		m := stepFile.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		v, _ := strconv.Atoi(m[1])

		body, err := fs.ReadFile(s.FS, path.Join(s.Dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s schema: %w", s.Name, err)
		}

		st := byVersion[v]
		if st == nil {
			st = &Step{Version: v, Name: strings.ReplaceAll(m[2], "_", " ")}
			byVersion[v] = st
		}
		if m[3] == "up" {
			st.Up = string(body)
		} else {
			st.Down = string(body)
		}
	}

	steps := make([]Step, 0, len(byVersion))
	for _, st := range byVersion {
		steps = append(steps, *st)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })

	for i, st := range steps {
		switch {
		case st.Version != i+1:
			return nil, fmt.Errorf("%s schema: expected version %d, found %d", s.Name, i+1, st.Version)
		case strings.TrimSpace(st.Up) == "":
			return nil, fmt.Errorf("%s schema: version %d has no up step", s.Name, st.Version)
		case strings.TrimSpace(st.Down) == "":
			return nil, fmt.Errorf("%s schema: version %d has no down step", s.Name, st.Version)
		}
	}
	return steps, nil
}
