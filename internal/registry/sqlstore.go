package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"qanneal/internal/anneal"
	"qanneal/internal/qubo"
)

const schema = `
CREATE TABLE IF NOT EXISTS problems (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	model_json  TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	id             TEXT PRIMARY KEY,
	problem_id     TEXT NOT NULL,
	best_json      TEXT NOT NULL,
	best_energy    REAL NOT NULL,
	samples_json   TEXT NOT NULL,
	num_reads      INTEGER NOT NULL,
	annealing_time INTEGER NOT NULL,
	elapsed_s      REAL NOT NULL,
	solver         TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS results_by_problem ON results(problem_id);
`

// SQLStore implements Store on SQLite, for servers that want problems and
// results to survive a restart. Same facade as MemStore; selected by flag.
type SQLStore struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path and applies the schema.
// The parent directory is created if missing.
func Open(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

// modelJSON is the column encoding of a qubo.Model. Pair keys flatten to
// "u,v" strings because JSON objects cannot key on structs.
type modelJSON struct {
	Kind      qubo.Kind          `json:"kind"`
	Linear    map[string]float64 `json:"linear"`
	Quadratic map[string]float64 `json:"quadratic"`
}

func encodeModel(m *qubo.Model) (string, error) {
	enc := modelJSON{
		Kind:      m.Kind,
		Linear:    make(map[string]float64, len(m.Linear)),
		Quadratic: make(map[string]float64, len(m.Quadratic)),
	}
	for v, c := range m.Linear {
		enc.Linear[strconv.Itoa(v)] = c
	}
	for p, c := range m.Quadratic {
		enc.Quadratic[fmt.Sprintf("%d,%d", p.U, p.V)] = c
	}
	data, err := json.Marshal(enc)
	if err != nil {
		return "", fmt.Errorf("encode model: %w", err)
	}
	return string(data), nil
}

func decodeModel(data string) (*qubo.Model, error) {
	var enc modelJSON
	if err := json.Unmarshal([]byte(data), &enc); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	m := &qubo.Model{
		Kind:      enc.Kind,
		Linear:    make(map[int]float64, len(enc.Linear)),
		Quadratic: make(map[qubo.Pair]float64, len(enc.Quadratic)),
	}
	for k, c := range enc.Linear {
		v, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decode model: linear key %q: %w", k, err)
		}
		m.Linear[v] = c
	}
	for k, c := range enc.Quadratic {
		p, err := qubo.ParsePair(k)
		if err != nil {
			return nil, fmt.Errorf("decode model: %w", err)
		}
		m.Quadratic[p] = c
	}
	return m, nil
}

func encodeAssignment(a map[int]int8) (string, error) {
	enc := make(map[string]int8, len(a))
	for v, val := range a {
		enc[strconv.Itoa(v)] = val
	}
	data, err := json.Marshal(enc)
	if err != nil {
		return "", fmt.Errorf("encode assignment: %w", err)
	}
	return string(data), nil
}

func decodeAssignment(data string) (map[int]int8, error) {
	var enc map[string]int8
	if err := json.Unmarshal([]byte(data), &enc); err != nil {
		return nil, fmt.Errorf("decode assignment: %w", err)
	}
	out := make(map[int]int8, len(enc))
	for k, val := range enc {
		v, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decode assignment key %q: %w", k, err)
		}
		out[v] = val
	}
	return out, nil
}

// sampleJSON carries one aggregated sample in a samples_json column.
type sampleJSON struct {
	Assignment  map[string]int8 `json:"assignment"`
	Energy      float64         `json:"energy"`
	Occurrences int             `json:"num_occurrences"`
}

func encodeSamples(samples []anneal.Sample) (string, error) {
	enc := make([]sampleJSON, 0, len(samples))
	for _, s := range samples {
		a := make(map[string]int8, len(s.Assignment))
		for v, val := range s.Assignment {
			a[strconv.Itoa(v)] = val
		}
		enc = append(enc, sampleJSON{Assignment: a, Energy: s.Energy, Occurrences: s.Occurrences})
	}
	data, err := json.Marshal(enc)
	if err != nil {
		return "", fmt.Errorf("encode samples: %w", err)
	}
	return string(data), nil
}

func decodeSamples(data string) ([]anneal.Sample, error) {
	var enc []sampleJSON
	if err := json.Unmarshal([]byte(data), &enc); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	out := make([]anneal.Sample, 0, len(enc))
	for _, s := range enc {
		a := make(map[int]int8, len(s.Assignment))
		for k, val := range s.Assignment {
			v, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("decode sample key %q: %w", k, err)
			}
			a[v] = val
		}
		out = append(out, anneal.Sample{Assignment: a, Energy: s.Energy, Occurrences: s.Occurrences})
	}
	return out, nil
}

// PutProblem implements Store.
func (s *SQLStore) PutProblem(p *Problem) error {
	if p == nil {
		return errors.New("problem is nil")
	}
	modelData, err := encodeModel(p.Model)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO problems(id, kind, description, model_json, created_at) VALUES(?,?,?,?,?)`,
		p.ID, string(p.Kind), p.Description, modelData, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert problem: %w", err)
	}
	return nil
}

// GetProblem implements Store.
func (s *SQLStore) GetProblem(id string) (*Problem, error) {
	row := s.db.QueryRow(
		`SELECT id, kind, description, model_json, created_at FROM problems WHERE id = ?`, id)
	var p Problem
	var kind, modelData string
	err := row.Scan(&p.ID, &kind, &p.Description, &modelData, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("problem %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select problem: %w", err)
	}
	p.Kind = qubo.Kind(kind)
	if p.Model, err = decodeModel(modelData); err != nil {
		return nil, err
	}
	p.Model.Kind = p.Kind
	return &p, nil
}

// ListProblems implements Store.
func (s *SQLStore) ListProblems() ([]*Problem, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, description, model_json, created_at FROM problems ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	defer rows.Close()

	var out []*Problem
	for rows.Next() {
		var p Problem
		var kind, modelData string
		if err := rows.Scan(&p.ID, &kind, &p.Description, &modelData, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		p.Kind = qubo.Kind(kind)
		if p.Model, err = decodeModel(modelData); err != nil {
			return nil, err
		}
		p.Model.Kind = p.Kind
		out = append(out, &p)
	}
	return out, rows.Err()
}

// PutResult implements Store.
func (s *SQLStore) PutResult(r *Result) error {
	if r == nil {
		return errors.New("result is nil")
	}
	bestData, err := encodeAssignment(r.BestSample)
	if err != nil {
		return err
	}
	samplesData, err := encodeSamples(r.Samples)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO results(id, problem_id, best_json, best_energy, samples_json,
			num_reads, annealing_time, elapsed_s, solver, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.ProblemID, bestData, r.BestEnergy, samplesData,
		r.NumReads, r.AnnealingTimeUS, r.ElapsedSeconds, r.Solver, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// GetResult implements Store: result ID first, then latest result for the
// problem ID.
func (s *SQLStore) GetResult(id string) (*Result, error) {
	r, err := s.scanResult(s.db.QueryRow(
		`SELECT id, problem_id, best_json, best_energy, samples_json,
			num_reads, annealing_time, elapsed_s, solver, created_at
		 FROM results WHERE id = ?`, id))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	r, err = s.scanResult(s.db.QueryRow(
		`SELECT id, problem_id, best_json, best_energy, samples_json,
			num_reads, annealing_time, elapsed_s, solver, created_at
		 FROM results WHERE problem_id = ? ORDER BY rowid DESC LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	return r, err
}

func (s *SQLStore) scanResult(row *sql.Row) (*Result, error) {
	var r Result
	var bestData, samplesData string
	err := row.Scan(&r.ID, &r.ProblemID, &bestData, &r.BestEnergy, &samplesData,
		&r.NumReads, &r.AnnealingTimeUS, &r.ElapsedSeconds, &r.Solver, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	if r.BestSample, err = decodeAssignment(bestData); err != nil {
		return nil, err
	}
	if r.Samples, err = decodeSamples(samplesData); err != nil {
		return nil, err
	}
	return &r, nil
}
