package config

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chrissnell/snowtiles/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Schema is the configuration database's embedded table layout
var Schema = migrate.Schema{
	Name:  "config",
	FS:    migrationsFS,
	Dir:   "migrations",
	Table: "config_schema_migrations",
}

const defaultConfigQuery = `(SELECT id FROM configs WHERE name = 'default')`

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens (and if needed creates) a configuration database
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single connection keeps :memory: databases coherent
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	m, err := migrate.New(context.Background(), db, Schema, nil)
	if err == nil {
		_, err = m.Up(context.Background())
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate config database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from the SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}
	var err error

	if config.Simulation, err = s.getSimulation(); err != nil {
		return nil, fmt.Errorf("failed to load simulation: %w", err)
	}
	if config.Grid, err = s.getGrid(); err != nil {
		return nil, fmt.Errorf("failed to load grid: %w", err)
	}
	if config.Surfaces, err = s.getSurfaces(); err != nil {
		return nil, fmt.Errorf("failed to load surfaces: %w", err)
	}
	if config.Column, err = s.getColumn(); err != nil {
		return nil, fmt.Errorf("failed to load column params: %w", err)
	}
	if config.Forcing, err = s.getForcing(); err != nil {
		return nil, fmt.Errorf("failed to load forcing: %w", err)
	}

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	if config.Controllers, err = s.GetControllers(); err != nil {
		return nil, fmt.Errorf("failed to load controllers: %w", err)
	}

	config.ApplyDefaults()
	return config, nil
}

func (s *SQLiteProvider) getSimulation() (SimulationData, error) {
	var sim SimulationData
	var step, interval, start, meltModel sql.NullString
	var steps, workers sql.NullInt64

	err := s.db.QueryRow(`
		SELECT step, steps, wall_interval, start_time, workers, melt_model
		FROM simulation WHERE config_id = `+defaultConfigQuery).
		Scan(&step, &steps, &interval, &start, &workers, &meltModel)
	if err == sql.ErrNoRows {
		return sim, nil
	}
	if err != nil {
		return sim, err
	}

	sim.Step = step.String
	sim.Steps = int(steps.Int64)
	sim.Interval = interval.String
	sim.Start = start.String
	sim.Workers = int(workers.Int64)
	sim.MeltModel = meltModel.String
	return sim, nil
}

func (s *SQLiteProvider) getGrid() (GridData, error) {
	var g GridData
	var layout, surface sql.NullString
	var edge, band sql.NullInt64

	err := s.db.QueryRow(`
		SELECT grid_rows, grid_cols, layout, edge, band, surface
		FROM grid WHERE config_id = `+defaultConfigQuery).
		Scan(&g.Rows, &g.Cols, &layout, &edge, &band, &surface)
	if err == sql.ErrNoRows {
		return g, nil
	}
	if err != nil {
		return g, err
	}
	g.Layout = layout.String
	g.Edge = int(edge.Int64)
	g.Band = int(band.Int64)
	g.Surface = surface.String

	rows, err := s.db.Query(`SELECT line FROM grid_map WHERE config_id = ` + defaultConfigQuery + ` ORDER BY row_index`)
	if err != nil {
		return g, err
	}
	defer rows.Close()

	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return g, err
		}
		g.Map = append(g.Map, line)
	}
	return g, rows.Err()
}

func (s *SQLiteProvider) getSurfaces() ([]SurfaceData, error) {
	rows, err := s.db.Query(`
		SELECT surface_type, albedo, air_emissivity, snow_emissivity,
		       ground_model, solar_coef, ground_offset
		FROM surfaces WHERE config_id = ` + defaultConfigQuery + `
		ORDER BY surface_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var surfaces []SurfaceData
	for rows.Next() {
		var sd SurfaceData
		var albedo, airEm, snowEm, solarCoef, offset sql.NullFloat64
		var groundModel sql.NullString

		if err := rows.Scan(&sd.Type, &albedo, &airEm, &snowEm, &groundModel, &solarCoef, &offset); err != nil {
			return nil, fmt.Errorf("failed to scan surface row: %w", err)
		}

		sd.Albedo = floatPtr(albedo)
		sd.AirEmissivity = floatPtr(airEm)
		sd.SnowEmissivity = floatPtr(snowEm)
		if groundModel.Valid {
			sd.Ground = &GroundData{
				Model:     groundModel.String,
				SolarCoef: solarCoef.Float64,
				Offset:    offset.Float64,
			}
		}
		surfaces = append(surfaces, sd)
	}
	return surfaces, rows.Err()
}

// getColumn reads name/value pairs keyed by the JSON field names of ColumnData
func (s *SQLiteProvider) getColumn() (ColumnData, error) {
	var col ColumnData

	rows, err := s.db.Query(`SELECT name, value FROM column_params WHERE config_id = ` + defaultConfigQuery)
	if err != nil {
		return col, err
	}
	defer rows.Close()

	values := map[string]interface{}{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return col, err
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			values[name] = f
		} else {
			values[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return col, err
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return col, err
	}
	if err := json.Unmarshal(raw, &col); err != nil {
		return col, fmt.Errorf("invalid column parameter: %w", err)
	}
	return col, nil
}

func (s *SQLiteProvider) getForcing() (ForcingData, error) {
	var f ForcingData
	var provider string
	var settings sql.NullString

	err := s.db.QueryRow(`SELECT provider, settings FROM forcing WHERE config_id = `+defaultConfigQuery).
		Scan(&provider, &settings)
	if err == sql.ErrNoRows {
		return f, nil
	}
	if err != nil {
		return f, err
	}

	if settings.Valid && settings.String != "" {
		if err := json.Unmarshal([]byte(settings.String), &f); err != nil {
			return f, fmt.Errorf("invalid forcing settings: %w", err)
		}
	}
	f.Provider = provider
	return f, nil
}

// GetStorageConfig returns storage configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	rows, err := s.db.Query(`
		SELECT backend_type, path, connection_string, every
		FROM storage_configs
		WHERE config_id = ` + defaultConfigQuery + ` AND enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}
	for rows.Next() {
		var backendType string
		var path, connectionString sql.NullString
		var every sql.NullInt64

		if err := rows.Scan(&backendType, &path, &connectionString, &every); err != nil {
			return nil, fmt.Errorf("failed to scan storage config row: %w", err)
		}

		switch backendType {
		case "sqlite":
			storage.SQLite = &SQLiteData{Path: path.String}
		case "timescaledb":
			storage.TimescaleDB = &TimescaleDBData{ConnectionString: connectionString.String}
		case "msgpack":
			storage.Msgpack = &MsgpackData{Path: path.String}
		case "log":
			storage.Log = &LogData{Every: int(every.Int64)}
		default:
			return nil, fmt.Errorf("unknown storage backend %q", backendType)
		}
	}

	return storage, rows.Err()
}

// GetControllers returns controller configurations from the database
func (s *SQLiteProvider) GetControllers() ([]ControllerData, error) {
	rows, err := s.db.Query(`
		SELECT controller_type, listen_addr, port, tls_cert, tls_key
		FROM controller_configs
		WHERE config_id = ` + defaultConfigQuery + ` AND enabled = 1
		ORDER BY controller_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query controller configs: %w", err)
	}
	defer rows.Close()

	var controllers []ControllerData
	for rows.Next() {
		var controllerType string
		var listenAddr, cert, key sql.NullString
		var port sql.NullInt64

		if err := rows.Scan(&controllerType, &listenAddr, &port, &cert, &key); err != nil {
			return nil, fmt.Errorf("failed to scan controller config row: %w", err)
		}

		controller := ControllerData{Type: controllerType}
		if controllerType == "rest" {
			controller.RESTServer = &RESTServerData{
				ListenAddr: listenAddr.String,
				Port:       int(port.Int64),
				Cert:       cert.String,
				Key:        key.String,
			}
		}
		controllers = append(controllers, controller)
	}

	return controllers, rows.Err()
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with c
func (s *SQLiteProvider) SaveConfig(c *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var configID int64
	if err := tx.QueryRow(`SELECT id FROM configs WHERE name = 'default'`).Scan(&configID); err != nil {
		return fmt.Errorf("failed to find default config: %w", err)
	}

	if err := clearConfig(tx, configID); err != nil {
		return fmt.Errorf("failed to clear existing config: %w", err)
	}

	sim := c.Simulation
	if _, err := tx.Exec(`
		INSERT INTO simulation (config_id, step, steps, wall_interval, start_time, workers, melt_model)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		configID, sim.Step, sim.Steps, sim.Interval, sim.Start, sim.Workers, sim.MeltModel); err != nil {
		return fmt.Errorf("failed to insert simulation: %w", err)
	}

	g := c.Grid
	if _, err := tx.Exec(`
		INSERT INTO grid (config_id, grid_rows, grid_cols, layout, edge, band, surface)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		configID, g.Rows, g.Cols, g.Layout, g.Edge, g.Band, g.Surface); err != nil {
		return fmt.Errorf("failed to insert grid: %w", err)
	}
	for i, line := range g.Map {
		if _, err := tx.Exec(`INSERT INTO grid_map (config_id, row_index, line) VALUES (?, ?, ?)`, configID, i, line); err != nil {
			return fmt.Errorf("failed to insert grid map row %d: %w", i, err)
		}
	}

	for _, sd := range c.Surfaces {
		var groundModel sql.NullString
		var solarCoef, offset sql.NullFloat64
		if sd.Ground != nil {
			groundModel = sql.NullString{String: sd.Ground.Model, Valid: true}
			solarCoef = sql.NullFloat64{Float64: sd.Ground.SolarCoef, Valid: true}
			offset = sql.NullFloat64{Float64: sd.Ground.Offset, Valid: true}
		}
		if _, err := tx.Exec(`
			INSERT INTO surfaces (config_id, surface_type, albedo, air_emissivity, snow_emissivity,
			                      ground_model, solar_coef, ground_offset)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			configID, strings.ToLower(sd.Type), nullFloat(sd.Albedo), nullFloat(sd.AirEmissivity),
			nullFloat(sd.SnowEmissivity), groundModel, solarCoef, offset); err != nil {
			return fmt.Errorf("failed to insert surface %s: %w", sd.Type, err)
		}
	}

	if err := insertColumn(tx, configID, c.Column); err != nil {
		return fmt.Errorf("failed to insert column params: %w", err)
	}

	settings := c.Forcing
	settings.Provider = ""
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode forcing settings: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO forcing (config_id, provider, settings) VALUES (?, ?, ?)`,
		configID, c.Forcing.Provider, string(raw)); err != nil {
		return fmt.Errorf("failed to insert forcing: %w", err)
	}

	if err := insertStorage(tx, configID, &c.Storage); err != nil {
		return fmt.Errorf("failed to insert storage configs: %w", err)
	}

	for _, ctl := range c.Controllers {
		var rs RESTServerData
		if ctl.RESTServer != nil {
			rs = *ctl.RESTServer
		}
		if _, err := tx.Exec(`
			INSERT INTO controller_configs (config_id, controller_type, listen_addr, port, tls_cert, tls_key)
			VALUES (?, ?, ?, ?, ?, ?)`,
			configID, ctl.Type, rs.ListenAddr, rs.Port, rs.Cert, rs.Key); err != nil {
			return fmt.Errorf("failed to insert controller %s: %w", ctl.Type, err)
		}
	}

	if _, err := tx.Exec(`UPDATE configs SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, configID); err != nil {
		return err
	}

	return tx.Commit()
}

func clearConfig(tx *sql.Tx, configID int64) error {
	tables := []string{
		"simulation", "grid", "grid_map", "surfaces", "column_params",
		"forcing", "storage_configs", "controller_configs",
	}
	for _, table := range tables {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE config_id = ?", configID); err != nil {
			return err
		}
	}
	return nil
}

func insertColumn(tx *sql.Tx, configID int64, col ColumnData) error {
	raw, err := json.Marshal(col)
	if err != nil {
		return err
	}
	var values map[string]interface{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return err
	}

	for name, v := range values {
		var value string
		switch tv := v.(type) {
		case float64:
			value = strconv.FormatFloat(tv, 'g', -1, 64)
		default:
			value = fmt.Sprint(tv)
		}
		if _, err := tx.Exec(`INSERT INTO column_params (config_id, name, value) VALUES (?, ?, ?)`, configID, name, value); err != nil {
			return err
		}
	}
	return nil
}

func insertStorage(tx *sql.Tx, configID int64, st *StorageData) error {
	insert := func(backend string, path, conn sql.NullString, every sql.NullInt64) error {
		_, err := tx.Exec(`
			INSERT INTO storage_configs (config_id, backend_type, path, connection_string, every)
			VALUES (?, ?, ?, ?, ?)`, configID, backend, path, conn, every)
		return err
	}

	if st.SQLite != nil {
		if err := insert("sqlite", nullString(st.SQLite.Path), sql.NullString{}, sql.NullInt64{}); err != nil {
			return err
		}
	}
	if st.TimescaleDB != nil {
		if err := insert("timescaledb", sql.NullString{}, nullString(st.TimescaleDB.ConnectionString), sql.NullInt64{}); err != nil {
			return err
		}
	}
	if st.Msgpack != nil {
		if err := insert("msgpack", nullString(st.Msgpack.Path), sql.NullString{}, sql.NullInt64{}); err != nil {
			return err
		}
	}
	if st.Log != nil {
		if err := insert("log", sql.NullString{}, sql.NullString{}, sql.NullInt64{Int64: int64(st.Log.Every), Valid: true}); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
