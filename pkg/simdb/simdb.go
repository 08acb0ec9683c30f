package simdb

import (
	"database/sql"
	"embed"
	"encoding/json"
	stderrors "errors"
	"sort"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is the results database.
type DB struct {
	*sql.DB
}

// Simulation is one recorded solver run.
type Simulation struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Component string    `json:"component"`
	Kind      string    `json:"kind"`
	Settings  string    `json:"settings_json"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows Simulations listings. Zero fields match everything.
type Filter struct {
	Component string
	Kind      string
	Since     time.Time
}

// Open opens the database at path, creating it if needed, and applies
// pending migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "open %s", path)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "enable foreign keys")
	}
	db := &DB{DB: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "load migrations")
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "prepare migrations")
	}
	// Not closed: closing the migrate instance would close the shared
	// connection.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "prepare migrations")
	}
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(errors.ErrCodeDatabase, err, "apply migrations")
	}
	return nil
}

// RecordSimulation upserts a run keyed by its store key and returns the
// row id. Settings may be nil.
func (db *DB) RecordSimulation(key, component, kind string, settings any) (int64, error) {
	if key == "" {
		return 0, errors.New(errors.ErrCodeInvalidInput, "simulation key is empty")
	}
	settingsJSON := "{}"
	if settings != nil {
		raw, err := json.Marshal(settings)
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "settings for %q are not serializable", key)
		}
		settingsJSON = string(raw)
	}

	_, err := db.Exec(`
		INSERT INTO simulations (key, component, kind, settings_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			component     = excluded.component,
			kind          = excluded.kind,
			settings_json = excluded.settings_json
	`, key, component, kind, settingsJSON)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDatabase, err, "record simulation %q", key)
	}

	var id int64
	if err := db.QueryRow("SELECT id FROM simulations WHERE key = ?", key).Scan(&id); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDatabase, err, "look up simulation %q", key)
	}
	return id, nil
}

// SimulationByKey returns the recorded run for a store key.
func (db *DB) SimulationByKey(key string) (Simulation, error) {
	row := db.QueryRow(`
		SELECT id, key, component, kind, settings_json, created_at
		FROM simulations WHERE key = ?
	`, key)
	sim, err := scanSimulation(row.Scan)
	if err == sql.ErrNoRows {
		return Simulation{}, errors.New(errors.ErrCodeResultNotFound, "no simulation for key %q", key)
	}
	if err != nil {
		return Simulation{}, errors.Wrap(errors.ErrCodeDatabase, err, "look up simulation %q", key)
	}
	return sim, nil
}

// Simulations lists recorded runs, newest first.
func (db *DB) Simulations(f Filter) ([]Simulation, error) {
	query := `
		SELECT id, key, component, kind, settings_json, created_at
		FROM simulations
	`
	var (
		clauses []string
		args    []any
	)
	if f.Component != "" {
		clauses = append(clauses, "component = ?")
		args = append(args, f.Component)
	}
	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, f.Kind)
	}
	if !f.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.Unix())
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "list simulations")
	}
	defer rows.Close()

	var sims []Simulation
	for rows.Next() {
		sim, err := scanSimulation(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabase, err, "scan simulation")
		}
		sims = append(sims, sim)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "list simulations")
	}
	return sims, nil
}

func scanSimulation(scan func(...any) error) (Simulation, error) {
	var (
		sim       Simulation
		createdAt int64
	)
	err := scan(&sim.ID, &sim.Key, &sim.Component, &sim.Kind, &sim.Settings, &createdAt)
	if err != nil {
		return Simulation{}, err
	}
	sim.CreatedAt = time.Unix(createdAt, 0).UTC()
	return sim, nil
}

// InsertSParams replaces the stored S-parameters of a run in a single
// transaction.
func (db *DB) InsertSParams(simID int64, m *sparam.Matrix) error {
	pairs := m.Pairs()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "begin transaction")
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT 1 FROM simulations WHERE id = ?", simID).Scan(&exists)
	if err == sql.ErrNoRows {
		return errors.New(errors.ErrCodeResultNotFound, "no simulation %d", simID)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "look up simulation %d", simID)
	}

	if _, err := tx.Exec("DELETE FROM sparams WHERE simulation_id = ?", simID); err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "clear sparams for simulation %d", simID)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO sparams (simulation_id, wavelength_um, port_out, port_in, re, im)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "prepare sparam insert")
	}
	defer stmt.Close()

	for _, p := range pairs {
		vs := m.Data[p]
		for i, wl := range m.Wavelengths {
			if _, err := stmt.Exec(simID, wl, p.Out, p.In, real(vs[i]), imag(vs[i])); err != nil {
				return errors.Wrap(errors.ErrCodeDatabase, err, "insert S[%s,%s] at %g um", p.Out, p.In, wl)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabase, err, "commit sparams for simulation %d", simID)
	}
	return nil
}

// LoadSParams rebuilds the S-parameter matrix of a run.
func (db *DB) LoadSParams(simID int64) (*sparam.Matrix, error) {
	rows, err := db.Query(`
		SELECT wavelength_um, port_out, port_in, re, im
		FROM sparams WHERE simulation_id = ?
		ORDER BY port_out, port_in, wavelength_um
	`, simID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "load sparams for simulation %d", simID)
	}
	defer rows.Close()

	samples := make(map[sparam.PortPair]map[float64]complex128)
	wlSet := make(map[float64]bool)
	for rows.Next() {
		var (
			wl, re, im float64
			out, in    string
		)
		if err := rows.Scan(&wl, &out, &in, &re, &im); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabase, err, "scan sparam row")
		}
		pair := sparam.PortPair{Out: out, In: in}
		if samples[pair] == nil {
			samples[pair] = make(map[float64]complex128)
		}
		samples[pair][wl] = complex(re, im)
		wlSet[wl] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "load sparams for simulation %d", simID)
	}
	if len(samples) == 0 {
		return nil, errors.New(errors.ErrCodeResultNotFound, "no S-parameters for simulation %d", simID)
	}

	wavelengths := make([]float64, 0, len(wlSet))
	for wl := range wlSet {
		wavelengths = append(wavelengths, wl)
	}
	sort.Float64s(wavelengths)

	portSet := make(map[string]bool)
	for pair := range samples {
		portSet[pair.Out] = true
		portSet[pair.In] = true
	}
	ports := make([]string, 0, len(portSet))
	for p := range portSet {
		ports = append(ports, p)
	}
	sort.Strings(ports)

	m, err := sparam.New(wavelengths, ports)
	if err != nil {
		return nil, err
	}
	for pair, byWl := range samples {
		vs := make([]complex128, len(wavelengths))
		for i, wl := range wavelengths {
			v, ok := byWl[wl]
			if !ok {
				return nil, errors.New(errors.ErrCodeDatabase,
					"simulation %d: S[%s,%s] has no sample at %g um", simID, pair.Out, pair.In, wl)
			}
			vs[i] = v
		}
		if err := m.Set(pair.Out, pair.In, vs); err != nil {
			return nil, err
		}
	}
	return m, nil
}
