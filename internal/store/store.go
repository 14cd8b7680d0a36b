package store

import (
	"autoviz/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the session and visualization repository.
type Store struct {
	db     *sql.DB
	driver string
}

// querier is what both *sql.DB and *sql.Tx offer.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the database described by cfg.
func Open(cfg Config, opts ...Option) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, driver: cfg.Driver}
	if cfg.AutoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Migrate creates the tables if they don't exist.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analysis_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			dataset_stats TEXT NOT NULL,
			encoding_map TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON analysis_sessions(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS visualizations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES analysis_sessions(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			graph_type TEXT NOT NULL,
			x_column TEXT NOT NULL,
			y_column TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			description TEXT NOT NULL,
			insights TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visualizations_session ON visualizations(session_id, position)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Join(ErrMigrationFailed, err)
		}
	}
	return nil
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

// Tx writes one upload atomically.
type Tx struct {
	tx        *sql.Tx
	driver    string
	positions map[string]int
}

// WithTx runs fn in a transaction. The transaction is rolled back if fn
// returns an error or panics, and committed otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &Tx{tx: sqlTx, driver: s.driver, positions: map[string]int{}}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateSession inserts sess, assigning an ID and timestamp when unset.
func (t *Tx) CreateSession(ctx context.Context, sess *models.Session) error {
	return createSession(ctx, t.tx, t.driver, sess)
}

// CreateVisualization inserts v after the session's previous visualizations.
func (t *Tx) CreateVisualization(ctx context.Context, v *models.Visualization) error {
	pos := t.positions[v.SessionID]
	if err := createVisualization(ctx, t.tx, t.driver, v, pos); err != nil {
		return err
	}
	t.positions[v.SessionID] = pos + 1
	return nil
}

// ============================================================================
// SESSIONS
// ============================================================================

func createSession(ctx context.Context, q querier, driver string, sess *models.Session) error {
	if sess.UserID == "" {
		return errors.New("session has no user")
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, rebind(driver,
		`INSERT INTO analysis_sessions (id, user_id, filename, dataset_stats, encoding_map, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		sess.ID, sess.UserID, sess.Filename, sess.DatasetStats, sess.EncodingMap, sess.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession returns the session if it exists and belongs to userID.
func (s *Store) GetSession(ctx context.Context, userID, id string) (*models.Session, error) {
	var sess models.Session
	var created int64
	err := s.db.QueryRowContext(ctx, rebind(s.driver,
		`SELECT id, user_id, filename, dataset_stats, encoding_map, created_at
		 FROM analysis_sessions WHERE id = ? AND user_id = ?`),
		id, userID,
	).Scan(&sess.ID, &sess.UserID, &sess.Filename, &sess.DatasetStats, &sess.EncodingMap, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.CreatedAt = time.Unix(0, created).UTC()
	return &sess, nil
}

// ListSessions returns the user's sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.driver,
		`SELECT id, user_id, filename, dataset_stats, encoding_map, created_at
		 FROM analysis_sessions WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var sess models.Session
		var created int64
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Filename, &sess.DatasetStats, &sess.EncodingMap, &created); err != nil {
			return nil, err
		}
		sess.CreatedAt = time.Unix(0, created).UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DeleteSession removes the session and, by cascade, its visualizations.
func (s *Store) DeleteSession(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, rebind(s.driver,
		`DELETE FROM analysis_sessions WHERE id = ? AND user_id = ?`),
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// VISUALIZATIONS
// ============================================================================

func createVisualization(ctx context.Context, q querier, driver string, v *models.Visualization, position int) error {
	if v.SessionID == "" {
		return errors.New("visualization has no session")
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, rebind(driver,
		`INSERT INTO visualizations (id, session_id, position, graph_type, x_column, y_column, payload, description, insights, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		v.ID, v.SessionID, position, v.GraphType, v.XColumn, v.YColumn, v.Payload, v.Description, v.Insights, v.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert visualization: %w", err)
	}
	return nil
}

// ListVisualizations returns the session's visualizations in creation
// order, without payloads.
func (s *Store) ListVisualizations(ctx context.Context, sessionID string) ([]models.Visualization, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.driver,
		`SELECT id, session_id, graph_type, x_column, y_column, description, insights, created_at
		 FROM visualizations WHERE session_id = ? ORDER BY position`),
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list visualizations: %w", err)
	}
	defer rows.Close()

	out := []models.Visualization{}
	for rows.Next() {
		var v models.Visualization
		var created int64
		if err := rows.Scan(&v.ID, &v.SessionID, &v.GraphType, &v.XColumn, &v.YColumn, &v.Description, &v.Insights, &created); err != nil {
			return nil, err
		}
		v.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetVisualization returns a visualization with its payload if its
// session belongs to userID.
func (s *Store) GetVisualization(ctx context.Context, userID, id string) (*models.Visualization, error) {
	var v models.Visualization
	var created int64
	err := s.db.QueryRowContext(ctx, rebind(s.driver,
		`SELECT v.id, v.session_id, v.graph_type, v.x_column, v.y_column, v.payload, v.description, v.insights, v.created_at
		 FROM visualizations v JOIN analysis_sessions s ON s.id = v.session_id
		 WHERE v.id = ? AND s.user_id = ?`),
		id, userID,
	).Scan(&v.ID, &v.SessionID, &v.GraphType, &v.XColumn, &v.YColumn, &v.Payload, &v.Description, &v.Insights, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visualization: %w", err)
	}
	v.CreatedAt = time.Unix(0, created).UTC()
	return &v, nil
}

// UpdateInsights replaces the insights of one visualization.
func (s *Store) UpdateInsights(ctx context.Context, id, insights string) error {
	res, err := s.db.ExecContext(ctx, rebind(s.driver,
		`UPDATE visualizations SET insights = ? WHERE id = ?`),
		insights, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update insights: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
