// Package archive keeps a local SQLite record of finished analysis runs
// so past scores and findings counts survive restarts and can be listed
// without re-running an analysis.
package archive

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/vibecheck/vibegraph/analysis"
	"github.com/vibecheck/vibegraph/errors"
)

// Run is one archived analysis run
type Run struct {
	AnalysisID      string
	RepoURL         string
	RepoName        string
	Branch          string
	Status          analysis.Status
	OverallScore    int
	LetterGrade     string
	Findings        analysis.FindingsSummary
	DurationSeconds int
	CompletedAt     time.Time
}

// Archive stores runs in a SQLite database
type Archive struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens (or creates) the archive at the given path and applies any
// pending migrations.
func Open(path string, logger *zap.SugaredLogger) (*Archive, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening archive database")
	}

	// WAL allows concurrent reads while a run is being written
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "setting busy timeout")
	}

	a := &Archive{db: db, logger: logger}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debugw("Archive opened", "path", path)
	return a, nil
}

// NewWithDB wraps an existing database handle and applies migrations.
// Tests use this with an in-memory database.
func NewWithDB(db *sql.DB, logger *zap.SugaredLogger) (*Archive, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	a := &Archive{db: db, logger: logger}
	if err := a.migrate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Close closes the underlying database
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveRun upserts one run record keyed by analysis id
func (a *Archive) SaveRun(ctx context.Context, run Run) error {
	if run.AnalysisID == "" {
		return errors.New("analysis id is required")
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO runs (
			analysis_id, repo_url, repo_name, branch, status,
			overall_score, letter_grade,
			critical_findings, warning_findings, info_findings, total_findings,
			duration_seconds, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(analysis_id) DO UPDATE SET
			status = excluded.status,
			overall_score = excluded.overall_score,
			letter_grade = excluded.letter_grade,
			critical_findings = excluded.critical_findings,
			warning_findings = excluded.warning_findings,
			info_findings = excluded.info_findings,
			total_findings = excluded.total_findings,
			duration_seconds = excluded.duration_seconds,
			completed_at = excluded.completed_at`,
		run.AnalysisID, run.RepoURL, run.RepoName, run.Branch, string(run.Status),
		run.OverallScore, run.LetterGrade,
		run.Findings.Critical, run.Findings.Warning, run.Findings.Info, run.Findings.Total,
		run.DurationSeconds, run.CompletedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "saving run %s", run.AnalysisID)
	}

	a.logger.Debugw("Run archived",
		"analysis_id", run.AnalysisID,
		"status", run.Status,
		"score", run.OverallScore,
	)
	return nil
}

const runColumns = `analysis_id, repo_url, repo_name, branch, status,
	overall_score, letter_grade,
	critical_findings, warning_findings, info_findings, total_findings,
	duration_seconds, completed_at`

// Run fetches one archived run by analysis id
func (a *Archive) Run(ctx context.Context, analysisID string) (*Run, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE analysis_id = ?`, analysisID)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "run %s", analysisID)
		}
		return nil, errors.Wrapf(err, "fetching run %s", analysisID)
	}
	return run, nil
}

// RecentRuns lists archived runs, most recently completed first
func (a *Archive) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RunsForRepo lists archived runs of one repository, newest first
func (a *Archive) RunsForRepo(ctx context.Context, repoURL string) ([]Run, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE repo_url = ? ORDER BY completed_at DESC`, repoURL)
	if err != nil {
		return nil, errors.Wrapf(err, "listing runs for %s", repoURL)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteRun removes one archived run
func (a *Archive) DeleteRun(ctx context.Context, analysisID string) error {
	result, err := a.db.ExecContext(ctx, `DELETE FROM runs WHERE analysis_id = ?`, analysisID)
	if err != nil {
		return errors.Wrapf(err, "deleting run %s", analysisID)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "checking delete result")
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrNotFound, "run %s", analysisID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scannable) (*Run, error) {
	var run Run
	var status string
	err := row.Scan(
		&run.AnalysisID, &run.RepoURL, &run.RepoName, &run.Branch, &status,
		&run.OverallScore, &run.LetterGrade,
		&run.Findings.Critical, &run.Findings.Warning, &run.Findings.Info, &run.Findings.Total,
		&run.DurationSeconds, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Status = analysis.Status(status)
	return &run, nil
}
