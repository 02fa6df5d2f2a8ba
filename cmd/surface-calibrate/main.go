package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chrissnell/snowtiles/internal/forcing"
	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/pkg/config"
	_ "github.com/lib/pq"
	"gopkg.in/yaml.v2"
)

func main() {
	var (
		csvInput    = flag.String("csv", "", "CSV of air_temperature,ground_temperature,shortwave samples (°C, °C, W/m²)")
		dbHost      = flag.String("db-host", "", "Database host; reads a remoteweather station when set")
		dbPort      = flag.Int("db-port", 5432, "Database port")
		dbUser      = flag.String("db-user", "postgres", "Database user")
		dbPass      = flag.String("db-pass", "", "Database password")
		dbName      = flag.String("db-name", "weather_v2_0_0", "Database name")
		station     = flag.String("station", "", "Station name whose soiltemp1 sensor sits under the surface")
		hours       = flag.Int("hours", 24*14, "Number of hours of station data to analyze")
		surfaceName = flag.String("surface", "concrete", "Surface type the samples describe")
	)
	flag.Parse()

	t, err := surface.ParseType(*surfaceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var samples []surface.GroundSample
	switch {
	case *csvInput != "":
		f, err := os.Open(*csvInput)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening CSV: %v\n", err)
			os.Exit(1)
		}
		samples, err = readSamples(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading CSV: %v\n", err)
			os.Exit(1)
		}
	case *dbHost != "":
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			*dbHost, *dbPort, *dbUser, *dbPass, *dbName)
		samples, err = fetchSamples(connStr, *station, *hours)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading station data: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Usage: %s (-csv samples.csv | -db-host host -station name) [-surface concrete]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Printf("Surface Ground Temperature Calibration\n")
	fmt.Printf("======================================\n\n")
	fmt.Printf("  Surface: %s\n", t)
	fmt.Printf("  Samples: %d\n\n", len(samples))

	cal, err := surface.FitLinearGround(samples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fitting model: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model: ground = air + %.4f * SW/1000 + %.4f\n", cal.Model.SolarCoef, cal.Model.Offset)
	fmt.Printf("  R²:   %.4f\n", cal.RSquared)
	fmt.Printf("  RMSE: %.3f °C\n\n", cal.RMSE)

	out, err := surfaceYAML(t, cal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering YAML: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration block:")
	fmt.Println()
	fmt.Print(string(out))
}

// readSamples parses a CSV with a header naming air_temperature,
// ground_temperature and shortwave columns in any order
func readSamples(r io.Reader) ([]surface.GroundSample, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cols := []string{"air_temperature", "ground_temperature", "shortwave"}
	for _, c := range cols {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing %s column", c)
		}
	}

	var samples []surface.GroundSample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var v [3]float64
		for i, c := range cols {
			v[i], err = strconv.ParseFloat(strings.TrimSpace(rec[idx[c]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s: %w", line, c, err)
			}
		}
		samples = append(samples, surface.GroundSample{AirTemperature: v[0], GroundTemperature: v[1], Shortwave: v[2]})
	}
	return samples, nil
}

// fetchSamples reads paired air and soil sensor readings from a remoteweather
// database, converting from °F
func fetchSamples(connStr, station string, hours int) ([]surface.GroundSample, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, err
	}

	query := `
		SELECT outtemp, soiltemp1, solarwatts
		FROM weather
		WHERE stationname = $1
		  AND time >= NOW() - INTERVAL '1 hour' * $2
		  AND outtemp IS NOT NULL
		  AND soiltemp1 IS NOT NULL
		  AND solarwatts IS NOT NULL
		ORDER BY time
	`
	rows, err := db.Query(query, station, hours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []surface.GroundSample
	for rows.Next() {
		var air, soil, solar float64
		if err := rows.Scan(&air, &soil, &solar); err != nil {
			return nil, err
		}
		samples = append(samples, surface.GroundSample{
			AirTemperature:    forcing.FahrenheitToCelsius(air),
			GroundTemperature: forcing.FahrenheitToCelsius(soil),
			Shortwave:         solar,
		})
	}
	return samples, rows.Err()
}

// surfaceYAML renders the fit as a surfaces entry
func surfaceYAML(t surface.Type, cal surface.Calibration) ([]byte, error) {
	block := []config.SurfaceData{{
		Type: t.String(),
		Ground: &config.GroundData{
			Model:     "linear",
			SolarCoef: round(cal.Model.SolarCoef, 4),
			Offset:    round(cal.Model.Offset, 4),
		},
	}}
	return yaml.Marshal(map[string]interface{}{"surfaces": block})
}

func round(v float64, places int) float64 {
	p, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	return p
}
