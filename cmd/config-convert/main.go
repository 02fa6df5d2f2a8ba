package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/snowtiles/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	configData, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}
	if err := configData.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printConfigSummary(configData)

	if *dryRun {
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(filepath.Dir(*sqliteFile), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	// The provider applies its schema migrations when it opens the database.
	provider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite database: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	if err := provider.SaveConfig(configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration into SQLite: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

func printConfigSummary(c *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("Grid: %dx%d, %s layout\n", c.Grid.Rows, c.Grid.Cols, c.Grid.Layout)
	fmt.Printf("Simulation: step %s, %d steps, melt model %q\n", c.Simulation.Step, c.Simulation.Steps, c.Simulation.MeltModel)
	fmt.Printf("Forcing: %s\n", c.Forcing.Provider)
	fmt.Printf("Surface overrides: %d\n", len(c.Surfaces))

	fmt.Printf("\nStorage Backends:\n")
	if c.Storage.SQLite != nil {
		fmt.Printf("  - SQLite: %s\n", c.Storage.SQLite.Path)
	}
	if c.Storage.TimescaleDB != nil {
		fmt.Printf("  - TimescaleDB: %s\n", c.Storage.TimescaleDB.ConnectionString)
	}
	if c.Storage.Msgpack != nil {
		fmt.Printf("  - msgpack: %s\n", c.Storage.Msgpack.Path)
	}
	if c.Storage.Log != nil {
		fmt.Printf("  - log: every %d ticks\n", c.Storage.Log.Every)
	}

	fmt.Printf("\nControllers (%d):\n", len(c.Controllers))
	for _, controller := range c.Controllers {
		fmt.Printf("  - %s\n", controller.Type)
	}
}
