// Package history keeps a log of recommendation runs in a SQL database.
// SQLite is the default; PostgreSQL is reached through the pgx stdlib driver.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"careermatch/internal/errors"
	"careermatch/internal/recommend"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	defaultLimit = 20
	maxLimit     = 500
)

// Run is one recorded recommendation.
type Run struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Source     string    `json:"source"`
	Stream     string    `json:"stream"`
	Course     string    `json:"course,omitempty"`
	Department string    `json:"department"`
	JobRole    string    `json:"jobRole,omitempty"`
	CGPA       *float64  `json:"cgpa,omitempty"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	Aggregate  int       `json:"aggregate"`
	Detected   []string  `json:"detectedSkills"`
	BestCount  int       `json:"bestMatchCount"`
	AltCount   int       `json:"alternateCount"`
}

// FromResult summarises a recommendation for storage. source names the
// surface that served it ("cli", "http", "mcp").
func FromResult(res *recommend.Result, source string) Run {
	return Run{
		ID:         res.RunID,
		Source:     source,
		Stream:     res.Query.Stream,
		Course:     res.Query.Course,
		Department: res.Query.Department,
		JobRole:    res.Query.JobRole,
		CGPA:       res.CGPA,
		Mode:       string(res.Mode),
		Status:     string(res.Status),
		Aggregate:  res.Aggregate.Percent,
		Detected:   res.Detected,
		BestCount:  len(res.BestMatch),
		AltCount:   len(res.Alternate),
	}
}

// Store records and lists runs. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	driver string
	logger *errors.Logger
}

// Open connects to the database and creates the schema when missing.
func Open(ctx context.Context, driver, dsn string, logger *errors.Logger) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "cannot create history directory", err)
		}
	case DriverPostgres:
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported history driver %q (available: sqlite, pgx)", driver), nil)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to open history database", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "history database unreachable", err)
	}

	s := &Store{db: db, driver: driver, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to initialise history schema", err)
	}
	if logger != nil {
		logger.Debug("History store opened", "driver", driver)
	}
	return s, nil
}

// ensureDir creates the parent directory of a sqlite file DSN.
func ensureDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o750)
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_ns BIGINT NOT NULL,
	source     TEXT NOT NULL,
	stream     TEXT NOT NULL,
	course     TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL,
	job_role   TEXT NOT NULL DEFAULT '',
	cgpa       DOUBLE PRECISION,
	mode       TEXT NOT NULL,
	status     TEXT NOT NULL,
	aggregate  INTEGER NOT NULL,
	detected   TEXT NOT NULL DEFAULT '',
	best_count INTEGER NOT NULL,
	alt_count  INTEGER NOT NULL
)`

const createdIndex = `CREATE INDEX IF NOT EXISTS idx_runs_created ON runs (created_ns)`

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range []string{schema, createdIndex} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2... for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record stores run. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "run id is required", nil)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	var cgpa sql.NullFloat64
	if run.CGPA != nil {
		cgpa = sql.NullFloat64{Float64: *run.CGPA, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO runs
		(id, created_ns, source, stream, course, department, job_role, cgpa, mode, status, aggregate, detected, best_count, alt_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.CreatedAt.UnixNano(), run.Source, run.Stream, run.Course, run.Department, run.JobRole,
		cgpa, run.Mode, run.Status, run.Aggregate, strings.Join(run.Detected, ","), run.BestCount, run.AltCount)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to record run", err)
	}
	return nil
}

const selectColumns = `SELECT id, created_ns, source, stream, course, department, job_role, cgpa, mode, status, aggregate, detected, best_count, alt_count FROM runs`

// List returns the newest runs first. limit <= 0 uses the default page size.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	rows, err := s.db.QueryContext(ctx, s.rebind(selectColumns+` ORDER BY created_ns DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list runs", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to read run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list runs", err)
	}
	return runs, nil
}

// Get returns one run by id. A missing run yields (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectColumns+` WHERE id = ?`), id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to read run", err)
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run      Run
		created  int64
		cgpa     sql.NullFloat64
		detected string
	)
	err := sc.Scan(&run.ID, &created, &run.Source, &run.Stream, &run.Course, &run.Department, &run.JobRole,
		&cgpa, &run.Mode, &run.Status, &run.Aggregate, &detected, &run.BestCount, &run.AltCount)
	if err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	if cgpa.Valid {
		v := cgpa.Float64
		run.CGPA = &v
	}
	run.Detected = []string{}
	if detected != "" {
		run.Detected = strings.Split(detected, ",")
	}
	return run, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
