package timescaledb

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS simulation_runs (
    run_id text PRIMARY KEY,
    started_at timestamp WITH TIME ZONE NOT NULL,
    grid_rows integer NOT NULL,
    grid_cols integer NOT NULL,
    config jsonb NULL
);`

const createTileStatesTableSQL = `
CREATE TABLE IF NOT EXISTS tile_states (
    time timestamp WITH TIME ZONE NOT NULL,
    run_id text NOT NULL,
    tick bigint NOT NULL,
    tile_row integer NOT NULL,
    tile_col integer NOT NULL,
    surface text NULL,
    swe float8 NULL,
    snow_depth float8 NULL,
    snow_density float8 NULL,
    surface_temperature float8 NULL,
    ground_temperature float8 NULL,
    melt float8 NULL,
    runoff float8 NULL
);`

const createHypertableSQL = `SELECT create_hypertable('tile_states', 'time', if_not_exists => true);`

const createTileIndexSQL = `CREATE INDEX IF NOT EXISTS tile_states_run_tile_idx ON tile_states (run_id, tile_row, tile_col, time DESC);`

const createSurface1hViewSQL = `CREATE MATERIALIZED VIEW IF NOT EXISTS tile_states_surface_1h
WITH (timescaledb.continuous, timescaledb.materialized_only = false)
AS
SELECT
    time_bucket('1 hour', time) as bucket,
    run_id,
    surface,
    avg(swe) as swe,
    max(snow_depth) as max_snow_depth,
    avg(surface_temperature) as surface_temperature,
    sum(melt) as melt,
    sum(runoff) as runoff
FROM tile_states
GROUP BY bucket, run_id, surface
WITH NO DATA;`

const addAggregationPolicy1hSQL = `SELECT add_continuous_aggregate_policy('tile_states_surface_1h', INTERVAL '2 years', INTERVAL '1 hour', INTERVAL '1 hour', if_not_exists => true);`
