package e2e

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goalpost-hq/goalpost/internal/api"
	"github.com/goalpost-hq/goalpost/internal/store"
	"github.com/goalpost-hq/goalpost/internal/types"
	"github.com/goalpost-hq/goalpost/pkg/autosave"
)

const apiKey = "test-api-key"

// testEnv is a full server stack: SQLite store behind the real router,
// served over a local listener.
type testEnv struct {
	db     *store.SQLiteStore
	server *httptest.Server
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "goalpost.db")
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	handler := api.NewHandler(db, apiKey, "test")
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)

	return &testEnv{db: db, server: server}
}

func (env *testEnv) seedEmployee(t *testing.T) *types.User {
	t.Helper()
	u, err := env.db.CreateUser(context.Background(), types.NewUser{
		Name:  "Avery Chen",
		Email: "avery@example.com",
		Role:  types.RoleEmployee,
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

func (env *testEnv) seedOpenPeriod(t *testing.T) *types.EvaluationPeriod {
	t.Helper()
	p, err := env.db.CreatePeriod(context.Background(), types.NewPeriod{
		Name:      "2026 H2",
		StartDate: time.Now().UTC().AddDate(0, -1, 0),
		EndDate:   time.Now().UTC().AddDate(0, 5, 0),
	})
	if err != nil {
		t.Fatalf("CreatePeriod() error = %v", err)
	}
	return p
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func performanceDraft(title string, weight int) autosave.Draft {
	return autosave.Draft{
		Variant: autosave.VariantPerformance,
		Performance: &autosave.PerformanceDraft{
			Title:               title,
			PerformanceType:     "growth",
			SpecificGoal:        "Ship the reporting pipeline",
			AchievementCriteria: "Reports land within one hour of close",
			Method:              "Biweekly milestones with the data team",
			Weight:              weight,
		},
	}
}

// newEngine wires an auto-save engine to the test server through the real
// HTTP client.
func newEngine(t *testing.T, env *testEnv, ownerID string, onReconcile func(old, replacement autosave.GoalID)) *autosave.Engine {
	t.Helper()

	svc := autosave.NewHTTPGoalService(env.server.URL, apiKey)
	if err := svc.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	e, err := autosave.New(svc, autosave.Config{
		OwnerID:          ownerID,
		DebounceInterval: 25 * time.Millisecond,
		OnReconcile:      onReconcile,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestAutosave_EndToEnd(t *testing.T) {
	env := setupEnv(t)
	owner := env.seedEmployee(t)
	period := env.seedOpenPeriod(t)
	ctx := context.Background()

	var (
		mu        sync.Mutex
		reconcile *[2]autosave.GoalID
	)
	engine := newEngine(t, env, owner.ID, func(old, replacement autosave.GoalID) {
		mu.Lock()
		defer mu.Unlock()
		reconcile = &[2]autosave.GoalID{old, replacement}
	})

	goals, err := engine.SelectPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("SelectPeriod() error = %v", err)
	}
	if len(goals) != 0 {
		t.Fatalf("fresh period has %d goals, want 0", len(goals))
	}
	if engine.State() != autosave.StateReadyEmpty {
		t.Fatalf("state = %v, want ready_empty", engine.State())
	}
	if err := engine.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	// Type a complete performance goal; the debounced create should
	// persist it and swap in the server-assigned id.
	tempID := engine.NewGoalID()
	if err := engine.Edit(tempID, performanceDraft("Ship reporting", 100)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reconcile != nil
	}, "goal was never created on the server")
	engine.Flush()

	mu.Lock()
	old, persisted := reconcile[0], reconcile[1]
	mu.Unlock()
	if old != tempID {
		t.Errorf("reconciled old id = %v, want %v", old, tempID)
	}
	if persisted.IsTemporary() {
		t.Fatalf("replacement id %v is still temporary", persisted)
	}

	stored, err := env.db.GetGoal(ctx, persisted.Value)
	if err != nil {
		t.Fatalf("GetGoal(%s) error = %v", persisted.Value, err)
	}
	if stored.Status != types.StatusDraft {
		t.Errorf("stored status = %s, want draft", stored.Status)
	}
	if stored.Performance == nil || stored.Performance.Title != "Ship reporting" {
		t.Errorf("stored performance fields = %+v", stored.Performance)
	}
	if engine.IsDirty(persisted) {
		t.Error("goal should be clean after the create lands")
	}

	// Edit the now-persisted goal; the debounced update should reach
	// the database.
	if err := engine.Edit(persisted, performanceDraft("Ship reporting v2", 100)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		g, err := env.db.GetGoal(ctx, persisted.Value)
		return err == nil && g.Performance.Title == "Ship reporting v2"
	}, "update never reached the database")
	engine.Flush()

	if engine.IsDirty(persisted) {
		t.Error("goal should be clean after the update lands")
	}
}

func TestAutosave_ReloadSeedsExistingDrafts(t *testing.T) {
	env := setupEnv(t)
	owner := env.seedEmployee(t)
	period := env.seedOpenPeriod(t)
	ctx := context.Background()

	first := newEngine(t, env, owner.ID, nil)
	if _, err := first.SelectPeriod(ctx, period.ID); err != nil {
		t.Fatalf("SelectPeriod() error = %v", err)
	}
	if err := first.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if err := first.Edit(first.NewGoalID(), performanceDraft("Ship reporting", 100)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		goals, err := env.db.ListGoals(ctx, period.ID, types.GoalFilter{OwnerID: owner.ID})
		return err == nil && len(goals) == 1
	}, "goal was never created on the server")
	first.Flush()
	first.Close()

	// A fresh session for the same period must seed the saved draft and
	// treat the unchanged form state as clean.
	second := newEngine(t, env, owner.ID, nil)
	goals, err := second.SelectPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("SelectPeriod() error = %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("reloaded %d goals, want 1", len(goals))
	}
	if second.State() != autosave.StateReadyLoaded {
		t.Errorf("state = %v, want ready_loaded", second.State())
	}
	if err := second.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	id := autosave.PersistedID(goals[0].ID)
	if err := second.Edit(id, goals[0].Draft); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if second.IsDirty(id) {
		t.Error("re-submitting the loaded form state must not be a change")
	}
}

func TestAutosave_SubmittedPeriodBlocksSession(t *testing.T) {
	env := setupEnv(t)
	owner := env.seedEmployee(t)
	period := env.seedOpenPeriod(t)
	ctx := context.Background()

	engine := newEngine(t, env, owner.ID, nil)
	if _, err := engine.SelectPeriod(ctx, period.ID); err != nil {
		t.Fatalf("SelectPeriod() error = %v", err)
	}
	if err := engine.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if err := engine.Edit(engine.NewGoalID(), performanceDraft("Ship reporting", 100)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		goals, err := env.db.ListGoals(ctx, period.ID, types.GoalFilter{OwnerID: owner.ID})
		return err == nil && len(goals) == 1
	}, "goal was never created on the server")
	engine.Flush()

	if _, err := env.db.SubmitGoals(ctx, period.ID, owner.ID); err != nil {
		t.Fatalf("SubmitGoals() error = %v", err)
	}

	// Re-entering the period after submission lands in the blocked state.
	if _, err := engine.SelectPeriod(ctx, period.ID); err != nil {
		t.Fatalf("SelectPeriod() error = %v", err)
	}
	if engine.State() != autosave.StateBlocked {
		t.Fatalf("state = %v, want blocked", engine.State())
	}
	if err := engine.Activate(); err == nil {
		t.Error("Activate() on a submitted period must fail")
	}
}
