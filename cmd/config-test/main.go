package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/snowtiles/internal/app"
	"github.com/chrissnell/snowtiles/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file; when set, compare it with the YAML file")
	)
	flag.Parse()

	if *yamlFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> [-sqlite <config.db>]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Test")
	fmt.Println("==================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlConfig, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	failed := !check(yamlConfig)

	if *sqliteFile != "" {
		fmt.Printf("\nLoading SQLite configuration: %s\n", *sqliteFile)
		sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
			os.Exit(1)
		}
		defer sqliteProvider.Close()

		sqliteConfig, err := sqliteProvider.LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("\nComparison Results:")
		fmt.Println("===================")
		if !compare(yamlConfig, sqliteConfig) {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

// check validates a configuration and builds its grid, printing the surface map
func check(c *config.ConfigData) bool {
	if err := c.Validate(); err != nil {
		fmt.Printf("✗ %v\n", err)
		return false
	}
	fmt.Println("✓ Configuration is valid")

	g, err := app.BuildGrid(c, nil)
	if err != nil {
		fmt.Printf("✗ Grid build failed: %v\n", err)
		return false
	}
	rows, cols := g.Dims()
	fmt.Printf("✓ Built %dx%d grid\n\n", rows, cols)

	for r := 0; r < rows; r++ {
		line := make([]byte, cols)
		for col := 0; col < cols; col++ {
			tile, _ := g.Query(r, col)
			line[col] = tile.Surface[0] - 'a' + 'A'
		}
		fmt.Printf("  %s\n", line)
	}
	return true
}

func compare(a, b *config.ConfigData) bool {
	sections := []struct {
		name string
		a, b interface{}
	}{
		{"simulation", a.Simulation, b.Simulation},
		{"grid", a.Grid, b.Grid},
		{"surfaces", a.Surfaces, b.Surfaces},
		{"column", a.Column, b.Column},
		{"forcing", a.Forcing, b.Forcing},
		{"storage", a.Storage, b.Storage},
		{"controllers", a.Controllers, b.Controllers},
	}

	ok := true
	for _, s := range sections {
		if reflect.DeepEqual(s.a, s.b) {
			fmt.Printf("✓ %s matches\n", s.name)
			continue
		}
		ok = false
		fmt.Printf("✗ %s differs\n  YAML:   %+v\n  SQLite: %+v\n", s.name, s.a, s.b)
	}
	return ok
}
