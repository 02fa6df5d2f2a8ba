package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/chrissnell/snowtiles/internal/log"
	"github.com/chrissnell/snowtiles/internal/storage/sqlite"
	"github.com/chrissnell/snowtiles/pkg/config"
	"github.com/chrissnell/snowtiles/pkg/migrate"
	_ "modernc.org/sqlite"
)

var schemas = map[string]migrate.Schema{
	"sink":   sqlite.Schema,
	"config": config.Schema,
}

func main() {
	var (
		dbPath        = flag.String("db", "", "SQLite database file")
		schemaName    = flag.String("schema", "sink", "Schema to manage: sink or config")
		command       = flag.String("command", "status", "Migration command: up, down, to, version, status")
		targetVersion = flag.String("target", "", "Target version for down/to commands")
		debug         = flag.Bool("debug", false, "Enable debug logging")
		helpFlag      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}
	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -db flag is required\n")
		showHelp()
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	schema, ok := schemas[*schemaName]
	if !ok {
		log.Fatalf("unknown schema %q", *schemaName)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	m, err := migrate.New(ctx, db, schema, log.GetSugaredLogger())
	if err != nil {
		log.Fatalf("%v", err)
	}

	switch *command {
	case "up":
		n, err := m.Up(ctx)
		if err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		fmt.Printf("Applied %d step(s); %s schema is at version %d\n", n, schema.Name, m.Latest())
	case "down", "to":
		target, err := strconv.Atoi(*targetVersion)
		if err != nil {
			log.Fatalf("-target must be a version number for the %s command", *command)
		}
		if *command == "down" {
			current, err := m.Version(ctx)
			if err != nil {
				log.Fatalf("%v", err)
			}
			if target >= current {
				log.Fatalf("target version %d must be below the current version %d", target, current)
			}
		}
		if err := m.To(ctx, target); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		fmt.Printf("%s schema is at version %d\n", schema.Name, target)
	case "version":
		v, err := m.Version(ctx)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("Current %s schema version: %d\n", schema.Name, v)
	case "status":
		st, err := m.Status(ctx)
		if err != nil {
			log.Fatalf("%v", err)
		}
		printStatus(st)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}
}

func printStatus(st migrate.Status) {
	fmt.Printf("Schema:  %s\n", st.Schema)
	fmt.Printf("Version: %d of %d\n", st.Current, st.Latest)
	for _, a := range st.Applied {
		fmt.Printf("  applied %d: %s (%s)\n", a.Version, a.Name, a.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, p := range st.Pending {
		fmt.Printf("  pending %d: %s\n", p.Version, p.Name)
	}
}

func showHelp() {
	fmt.Println("snowtiles schema migration tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate -db FILE [-schema sink|config] [-command up|down|to|version|status] [-target N]")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  migrate -db tiles.db -command status")
	fmt.Println("  migrate -db tiles.db -command down -target 0")
	fmt.Println("  migrate -db config.db -schema config -command up")
}
