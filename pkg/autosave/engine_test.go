package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type mockGoalService struct {
	mu sync.Mutex

	goals   []RemoteGoal
	listErr error

	createErr error
	updateErr error

	createCalls int
	updateCalls int
	nextID      int

	lastCreatePeriod string
	lastCreateOwner  string
	lastCreateDraft  Draft
	createPeriods    []string
	lastUpdateID     string
	lastUpdateDraft  Draft
}

func (m *mockGoalService) CreateGoal(_ context.Context, periodID, ownerID string, draft Draft) (*RemoteGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	m.lastCreatePeriod = periodID
	m.createPeriods = append(m.createPeriods, periodID)
	m.lastCreateOwner = ownerID
	m.lastCreateDraft = draft
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	return &RemoteGoal{
		ID:     fmt.Sprintf("srv-%d", m.nextID),
		Status: StatusDraft,
		Draft:  draft,
	}, nil
}

func (m *mockGoalService) UpdateGoal(_ context.Context, id string, draft Draft) (*RemoteGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	m.lastUpdateID = id
	m.lastUpdateDraft = draft
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &RemoteGoal{ID: id, Status: StatusDraft, Draft: draft}, nil
}

func (m *mockGoalService) ListGoals(_ context.Context, _, _ string) ([]RemoteGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.goals, nil
}

func (m *mockGoalService) counts() (creates, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls, m.updateCalls
}

func (m *mockGoalService) periodsCreatedIn() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.createPeriods...)
}

func (m *mockGoalService) setCreateErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

func (m *mockGoalService) waitForCreates(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c, _ := m.counts(); c >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	c, _ := m.counts()
	return c >= n
}

func (m *mockGoalService) waitForUpdates(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, u := m.counts(); u >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	_, u := m.counts()
	return u >= n
}

type reconcileRecorder struct {
	mu    sync.Mutex
	pairs [][2]GoalID
}

func (r *reconcileRecorder) record(old, replacement GoalID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, [2]GoalID{old, replacement})
}

func (r *reconcileRecorder) last() ([2]GoalID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pairs) == 0 {
		return [2]GoalID{}, false
	}
	return r.pairs[len(r.pairs)-1], true
}

func (r *reconcileRecorder) waitForPair(timeout time.Duration) ([2]GoalID, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if p, ok := r.last(); ok {
			return p, true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return r.last()
}

const testOwnerID = "01HQEMPST00000000000000000"

func newActiveEngine(t *testing.T, svc *mockGoalService, cfg Config) *Engine {
	t.Helper()

	if cfg.OwnerID == "" {
		cfg.OwnerID = testOwnerID
	}
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 25 * time.Millisecond
	}
	if cfg.SaveAttempts == 0 {
		cfg.SaveAttempts = 1
	}

	e, err := New(svc, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })

	if _, err := e.SelectPeriod(context.Background(), "period-1"); err != nil {
		t.Fatalf("SelectPeriod() error = %v", err)
	}
	if err := e.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	return e
}

func TestEngine_CreateFlowReconcilesTemporaryID(t *testing.T) {
	svc := &mockGoalService{}
	rec := &reconcileRecorder{}
	e := newActiveEngine(t, svc, Config{OnReconcile: rec.record})

	tempID := e.NewGoalID()

	// A burst of edits inside the debounce window must coalesce into
	// one create.
	if err := e.Edit(tempID, perfDraft("Ship", 50)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if err := e.Edit(tempID, perfDraft("Ship importer", 50)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if err := e.Edit(tempID, perfDraft("Ship the importer", 50)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if !svc.waitForCreates(1, 2*time.Second) {
		t.Fatal("expected a create call")
	}
	e.Flush()

	creates, updates := svc.counts()
	if creates != 1 || updates != 0 {
		t.Errorf("got %d creates, %d updates, want 1 create and 0 updates", creates, updates)
	}
	if svc.lastCreatePeriod != "period-1" || svc.lastCreateOwner != testOwnerID {
		t.Errorf("create carried period=%q owner=%q", svc.lastCreatePeriod, svc.lastCreateOwner)
	}
	if got := svc.lastCreateDraft.Performance.Title; got != "Ship the importer" {
		t.Errorf("saved title = %q, want the latest edit", got)
	}

	pair, ok := rec.waitForPair(2 * time.Second)
	if !ok {
		t.Fatal("expected an id reconciliation")
	}
	if pair[0] != tempID {
		t.Errorf("reconciled old id = %v, want %v", pair[0], tempID)
	}
	if pair[1].IsTemporary() || pair[1].Value != "srv-1" {
		t.Errorf("replacement id = %v, want persisted srv-1", pair[1])
	}

	if e.IsDirty(tempID) {
		t.Error("temporary id should be gone from the tracker")
	}
	if e.IsDirty(pair[1]) {
		t.Error("persisted goal should be clean right after save")
	}
}

func TestEngine_UpdateFlowMovesBaseline(t *testing.T) {
	loaded := perfDraft("Ship importer", 40)
	svc := &mockGoalService{
		goals: []RemoteGoal{{ID: "srv-9", Status: StatusDraft, Draft: loaded}},
	}
	e := newActiveEngine(t, svc, Config{})

	id := PersistedID("srv-9")
	edited := perfDraft("Ship importer v2", 40)
	if err := e.Edit(id, edited); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if !svc.waitForUpdates(1, 2*time.Second) {
		t.Fatal("expected an update call")
	}
	e.Flush()

	if svc.lastUpdateID != "srv-9" {
		t.Errorf("update hit id %q, want srv-9", svc.lastUpdateID)
	}
	if got := svc.lastUpdateDraft.Performance.Title; got != "Ship importer v2" {
		t.Errorf("saved title = %q", got)
	}
	if e.IsDirty(id) {
		t.Error("goal should be clean after a successful update")
	}

	// The baseline moved to the saved value, so re-submitting the same
	// form state is not a change and must not save again.
	if err := e.Edit(id, edited); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	e.Flush()

	if _, updates := svc.counts(); updates != 1 {
		t.Errorf("got %d updates, want 1", updates)
	}
}

func TestEngine_RevertedEditNeverSaves(t *testing.T) {
	loaded := perfDraft("Ship importer", 40)
	svc := &mockGoalService{
		goals: []RemoteGoal{{ID: "srv-9", Status: StatusDraft, Draft: loaded}},
	}
	e := newActiveEngine(t, svc, Config{})

	id := PersistedID("srv-9")
	if err := e.Edit(id, perfDraft("Ship importer v2", 40)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	// Undo before the debounce window closes.
	if err := e.Edit(id, loaded); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if e.IsDirty(id) {
		t.Error("goal reverted to its loaded state should be clean")
	}

	time.Sleep(100 * time.Millisecond)
	e.Flush()

	creates, updates := svc.counts()
	if creates != 0 || updates != 0 {
		t.Errorf("got %d creates, %d updates, want none", creates, updates)
	}
}

func TestEngine_IncompleteDraftNeverSaves(t *testing.T) {
	svc := &mockGoalService{}
	e := newActiveEngine(t, svc, Config{})

	id := e.NewGoalID()
	d := perfDraft("Ship importer", 40)
	d.Performance.Method = ""

	if err := e.Edit(id, d); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if !e.IsDirty(id) {
		t.Error("incomplete draft is still dirty")
	}

	time.Sleep(100 * time.Millisecond)
	e.Flush()

	if creates, _ := svc.counts(); creates != 0 {
		t.Errorf("got %d creates, want 0; incomplete drafts must not be sent", creates)
	}
}

func TestEngine_FailedSaveStaysDirtyUntilNextEdit(t *testing.T) {
	svc := &mockGoalService{}
	svc.setCreateErr(errors.New("backend down"))

	var (
		mu       sync.Mutex
		saveErrs []error
	)
	e := newActiveEngine(t, svc, Config{
		SaveAttempts: 1,
		OnSaveError: func(_ GoalID, err error) {
			mu.Lock()
			defer mu.Unlock()
			saveErrs = append(saveErrs, err)
		},
	})

	id := e.NewGoalID()
	if err := e.Edit(id, perfDraft("Ship importer", 50)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if !svc.waitForCreates(1, 2*time.Second) {
		t.Fatal("expected the failing create attempt")
	}
	e.Flush()

	if !e.IsDirty(id) {
		t.Error("goal must stay dirty after a failed save")
	}
	mu.Lock()
	errCount := len(saveErrs)
	mu.Unlock()
	if errCount != 1 {
		t.Errorf("OnSaveError fired %d times, want 1", errCount)
	}

	// No spontaneous retry: the failure is only retried when the user
	// edits again.
	time.Sleep(100 * time.Millisecond)
	if creates, _ := svc.counts(); creates != 1 {
		t.Fatalf("got %d creates without a new edit, want 1", creates)
	}

	svc.setCreateErr(nil)
	if err := e.Edit(id, perfDraft("Ship the importer", 50)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if !svc.waitForCreates(2, 2*time.Second) {
		t.Fatal("next edit should re-trigger the save")
	}
	e.Flush()

	if e.IsDirty(id) {
		t.Error("goal should be clean after the retried save succeeds")
	}
}

func TestEngine_FailingGoalDoesNotStarveOthers(t *testing.T) {
	loaded := perfDraft("Ship importer", 40)
	svc := &mockGoalService{
		goals:     []RemoteGoal{{ID: "srv-9", Status: StatusDraft, Draft: loaded}},
		updateErr: errors.New("backend down"),
	}
	e := newActiveEngine(t, svc, Config{SaveAttempts: 1})

	broken := PersistedID("srv-9")
	fresh := e.NewGoalID()

	if err := e.Edit(broken, perfDraft("Ship importer v2", 40)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if err := e.Edit(fresh, compDraft("Pair with the data team weekly")); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if !svc.waitForCreates(1, 2*time.Second) {
		t.Fatal("the competency goal should still save")
	}
	e.Flush()

	if !e.IsDirty(broken) {
		t.Error("the failed goal stays dirty")
	}
	if e.IsDirty(fresh) {
		t.Error("the unrelated goal should have saved cleanly")
	}
}

func TestEngine_EditRefusedOutsideActiveSession(t *testing.T) {
	svc := &mockGoalService{}
	e, err := New(svc, Config{OwnerID: testOwnerID, DebounceInterval: 25 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	if err := e.Edit(e.NewGoalID(), perfDraft("Ship", 50)); !errors.Is(err, ErrNotActive) {
		t.Errorf("Edit() before period selection error = %v, want ErrNotActive", err)
	}
}

func TestEngine_BlockedPeriodRefusesEdits(t *testing.T) {
	svc := &mockGoalService{
		goals: []RemoteGoal{{ID: "srv-9", Status: StatusSubmitted, Draft: perfDraft("Ship importer", 100)}},
	}
	e, err := New(svc, Config{OwnerID: testOwnerID, DebounceInterval: 25 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	if _, err := e.SelectPeriod(context.Background(), "period-1"); err != nil {
		t.Fatalf("SelectPeriod() error = %v", err)
	}
	if got := e.State(); got != StateBlocked {
		t.Fatalf("state = %v, want blocked", got)
	}

	if err := e.Activate(); !errors.Is(err, ErrBlocked) {
		t.Errorf("Activate() error = %v, want ErrBlocked", err)
	}
	if err := e.Edit(e.NewGoalID(), perfDraft("Ship", 50)); !errors.Is(err, ErrBlocked) {
		t.Errorf("Edit() error = %v, want ErrBlocked", err)
	}
	if len(e.Changed()) != 0 {
		t.Error("blocked session must not track anything")
	}
}

func TestEngine_PeriodSwitchDropsPendingWork(t *testing.T) {
	svc := &mockGoalService{}
	e := newActiveEngine(t, svc, Config{DebounceInterval: 50 * time.Millisecond})

	id := e.NewGoalID()
	if err := e.Edit(id, perfDraft("Ship importer", 50)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	// Switch away while the debounce timer is still pending.
	if _, err := e.SelectPeriod(context.Background(), "period-2"); err != nil {
		t.Fatalf("SelectPeriod() error = %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	e.Flush()

	creates, updates := svc.counts()
	if creates != 0 || updates != 0 {
		t.Errorf("got %d creates, %d updates after period switch, want none", creates, updates)
	}
	if e.IsDirty(id) {
		t.Error("tracker should have been cleared by the period switch")
	}
}

func TestEngine_PeriodSwitchAbandonsRetryingSave(t *testing.T) {
	svc := &mockGoalService{}
	svc.setCreateErr(errors.New("backend down"))
	rec := &reconcileRecorder{}
	e := newActiveEngine(t, svc, Config{SaveAttempts: 2, OnReconcile: rec.record})

	id := e.NewGoalID()
	if err := e.Edit(id, perfDraft("Ship importer", 50)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if !svc.waitForCreates(1, 2*time.Second) {
		t.Fatal("expected the first attempt")
	}

	// Switch periods during the retry backoff. The backend comes back,
	// but the retry belongs to the old session and must be abandoned
	// rather than create the old period's draft in the new one.
	svc.setCreateErr(nil)
	if _, err := e.SelectPeriod(context.Background(), "period-2"); err != nil {
		t.Fatalf("SelectPeriod() error = %v", err)
	}
	if err := e.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	e.Flush()

	if creates, _ := svc.counts(); creates != 1 {
		t.Fatalf("got %d creates, want 1; the retry should have been abandoned", creates)
	}
	for _, p := range svc.periodsCreatedIn() {
		if p != "period-1" {
			t.Errorf("a create was issued against %q", p)
		}
	}
	if _, ok := rec.last(); ok {
		t.Error("an abandoned save must not reconcile anything")
	}
	if e.IsDirty(id) {
		t.Error("the old period's draft must not survive the switch")
	}

	// The new session still works.
	fresh := e.NewGoalID()
	if err := e.Edit(fresh, perfDraft("New period goal", 50)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if !svc.waitForCreates(2, 2*time.Second) {
		t.Fatal("expected a create in the new period")
	}
	e.Flush()
	if got := svc.periodsCreatedIn(); got[len(got)-1] != "period-2" {
		t.Errorf("new goal created in %q, want period-2", got[len(got)-1])
	}
}

func TestEngine_SaveRetriesWithinExecution(t *testing.T) {
	svc := &mockGoalService{}
	svc.setCreateErr(errors.New("flaky"))
	e := newActiveEngine(t, svc, Config{SaveAttempts: 2})

	id := e.NewGoalID()
	if err := e.Edit(id, perfDraft("Ship importer", 50)); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if !svc.waitForCreates(1, 2*time.Second) {
		t.Fatal("expected the first attempt")
	}
	svc.setCreateErr(nil)

	if !svc.waitForCreates(2, 2*time.Second) {
		t.Fatal("expected an in-execution retry")
	}
	e.Flush()

	if e.IsDirty(id) {
		t.Error("goal should be clean once the retry succeeds")
	}
}

func TestEngine_CloseRefusesFurtherWork(t *testing.T) {
	svc := &mockGoalService{}
	e := newActiveEngine(t, svc, Config{})

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := e.SelectPeriod(context.Background(), "period-2"); !errors.Is(err, ErrClosed) {
		t.Errorf("SelectPeriod() after close error = %v, want ErrClosed", err)
	}
	if err := e.Activate(); !errors.Is(err, ErrClosed) {
		t.Errorf("Activate() after close error = %v, want ErrClosed", err)
	}

	id := e.NewGoalID()
	if err := e.Edit(id, perfDraft("Ship", 50)); !errors.Is(err, ErrClosed) {
		t.Errorf("Edit() after close error = %v, want ErrClosed", err)
	}
	if e.IsDirty(id) {
		t.Error("an edit after close must not reach the tracker")
	}
}
