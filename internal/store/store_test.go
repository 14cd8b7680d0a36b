package store

import (
	"autoviz/internal/models"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "test.db") + "?mode=rwc"
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSession(t *testing.T, s *Store, userID, filename string, charts int) *models.Session {
	t.Helper()
	sess := &models.Session{UserID: userID, Filename: filename, DatasetStats: "{}", EncodingMap: "{}"}
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		if err := tx.CreateSession(context.Background(), sess); err != nil {
			return err
		}
		for i := 0; i < charts; i++ {
			v := &models.Visualization{
				SessionID:   sess.ID,
				GraphType:   models.ChartHistogram,
				XColumn:     "age",
				Payload:     "<html></html>",
				Description: "chart",
			}
			if err := tx.CreateVisualization(context.Background(), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return sess
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"file:a.db", "file:a.db?_foreign_keys=on&_busy_timeout=5000"},
		{"file:a.db?mode=rwc", "file:a.db?mode=rwc&_foreign_keys=on&_busy_timeout=5000"},
		{"file:a.db?_foreign_keys=off&_busy_timeout=1", "file:a.db?_foreign_keys=off&_busy_timeout=1"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in, 5000); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = ?"
	if got := rebind(DriverSQLite, q); got != q {
		t.Errorf("sqlite query changed: %q", got)
	}
	if got := rebind(DriverPostgres, q); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("unexpected postgres query: %q", got)
	}
}

func TestOpen_MaxOpenConns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "conns.db") + "?mode=rwc"
	s, err := Open(cfg, WithMaxOpenConns(3))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if got := s.db.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("expected 3 max open connections, got %d", got)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mysql", DSN: "x"})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("expected ErrConnectionFailed, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := seedSession(t, s, "alice", "data.csv", 3)
	if sess.ID == "" {
		t.Fatal("expected session ID to be assigned")
	}

	got, err := s.GetSession(ctx, "alice", sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Filename != "data.csv" {
		t.Errorf("expected filename data.csv, got %s", got.Filename)
	}

	if _, err := s.GetSession(ctx, "bob", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign user, got %v", err)
	}

	vizs, err := s.ListVisualizations(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListVisualizations failed: %v", err)
	}
	if len(vizs) != 3 {
		t.Fatalf("expected 3 visualizations, got %d", len(vizs))
	}
	if vizs[0].Payload != "" {
		t.Error("expected list to omit payloads")
	}

	full, err := s.GetVisualization(ctx, "alice", vizs[1].ID)
	if err != nil {
		t.Fatalf("GetVisualization failed: %v", err)
	}
	if full.Payload != "<html></html>" {
		t.Errorf("unexpected payload %q", full.Payload)
	}
	if _, err := s.GetVisualization(ctx, "bob", vizs[1].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign visualization, got %v", err)
	}

	if err := s.UpdateInsights(ctx, vizs[1].ID, "new insight"); err != nil {
		t.Fatalf("UpdateInsights failed: %v", err)
	}
	full, _ = s.GetVisualization(ctx, "alice", vizs[1].ID)
	if full.Insights != "new insight" {
		t.Errorf("expected updated insights, got %q", full.Insights)
	}
	if err := s.UpdateInsights(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteSession(ctx, "bob", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected foreign delete to fail with ErrNotFound, got %v", err)
	}
	if err := s.DeleteSession(ctx, "alice", sess.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	vizs, err = s.ListVisualizations(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListVisualizations failed: %v", err)
	}
	if len(vizs) != 0 {
		t.Errorf("expected cascade delete, %d visualizations remain", len(vizs))
	}
}

func TestListSessions_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.csv", "b.csv", "c.csv"} {
		sess := &models.Session{UserID: "alice", Filename: name, DatasetStats: "{}", EncodingMap: "{}", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.WithTx(ctx, func(tx *Tx) error { return tx.CreateSession(ctx, sess) }); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	seedSession(t, s, "bob", "other.csv", 0)

	sessions, err := s.ListSessions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	if sessions[0].Filename != "c.csv" || sessions[2].Filename != "a.csv" {
		t.Errorf("unexpected order: %s, %s, %s", sessions[0].Filename, sessions[1].Filename, sessions[2].Filename)
	}
	if !sessions[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("unexpected created_at %v", sessions[0].CreatedAt)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("render failed")
	err := s.WithTx(ctx, func(tx *Tx) error {
		sess := &models.Session{UserID: "alice", Filename: "x.csv", DatasetStats: "{}", EncodingMap: "{}"}
		if err := tx.CreateSession(ctx, sess); err != nil {
			return err
		}
		if err := tx.CreateVisualization(ctx, &models.Visualization{SessionID: sess.ID, GraphType: "bar", XColumn: "a", Payload: "p", Description: "d"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	sessions, err := s.ListSessions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no partial session, got %d", len(sessions))
	}
}

func TestCreateVisualization_RequiresSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.CreateVisualization(ctx, &models.Visualization{SessionID: "nope", GraphType: "bar", XColumn: "a", Payload: "p", Description: "d"})
	})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}
