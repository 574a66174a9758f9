package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymcoach/internal/events"
	"github.com/claude/gymcoach/internal/metrics"
	"github.com/claude/gymcoach/internal/models"
	"github.com/claude/gymcoach/internal/notify"
	"github.com/claude/gymcoach/internal/prompt"
	"github.com/claude/gymcoach/internal/restimer"
	"github.com/claude/gymcoach/internal/session"
	"github.com/claude/gymcoach/internal/storage"
	"github.com/claude/gymcoach/internal/testutil"
)

var epoch = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu        sync.Mutex
	pingErr   error
	insertErr error
	profiles  map[string]models.Profile
	workouts  map[uuid.UUID]models.WorkoutRecord
	history   []models.HistoryEntry
	genLogs   []storage.GenerationLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[string]models.Profile),
		workouts: make(map[uuid.UUID]models.WorkoutRecord),
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) InsertWorkout(_ context.Context, userID string, w models.Workout) (models.WorkoutRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return models.WorkoutRecord{}, f.insertErr
	}
	rec := models.WorkoutRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Date:      w.Date,
		Theme:     w.Theme,
		Reason:    w.Reason,
		Sections:  w.Sections,
		CreatedAt: epoch,
	}
	f.workouts[rec.ID] = rec
	return rec, nil
}

func (f *fakeStore) GetWorkout(_ context.Context, id uuid.UUID, userID string) (*models.WorkoutRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.workouts[id]
	if !ok || rec.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeStore) DeleteWorkout(_ context.Context, id uuid.UUID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.workouts[id]
	if !ok || rec.UserID != userID {
		return storage.ErrNotFound
	}
	delete(f.workouts, id)
	return nil
}

func (f *fakeStore) ListWorkouts(_ context.Context, userID string, _ int) ([]models.WorkoutRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.WorkoutRecord{}
	for _, rec := range f.workouts {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) RecentHistory(context.Context, string, int) ([]models.HistoryEntry, error) {
	return f.history, nil
}

func (f *fakeStore) VolumeSeries(context.Context, string, string) ([]storage.VolumePoint, error) {
	return []storage.VolumePoint{}, nil
}

func (f *fakeStore) GetDataStats(context.Context, string) (*storage.DataStats, error) {
	return &storage.DataStats{}, nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return models.DefaultProfile(userID), nil
}

func (f *fakeStore) UpsertProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	cur, _ := f.GetProfile(ctx, p.UserID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !p.Language.Valid() {
		p.Language = cur.Language
	}
	if !p.NotificationPermission.Valid() {
		p.NotificationPermission = cur.NotificationPermission
	}
	f.profiles[p.UserID] = p
	return p, nil
}

func (f *fakeStore) SetLanguage(ctx context.Context, userID string, lang models.Language) error {
	p, _ := f.GetProfile(ctx, userID)
	p.Language = lang
	f.mu.Lock()
	f.profiles[userID] = p
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) SetNotificationPermission(ctx context.Context, userID string, perm models.Permission) error {
	p, _ := f.GetProfile(ctx, userID)
	p.NotificationPermission = perm
	f.mu.Lock()
	f.profiles[userID] = p
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) InsertGenerationLog(_ context.Context, log storage.GenerationLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genLogs = append(f.genLogs, log)
	return int64(len(f.genLogs)), nil
}

func (f *fakeStore) QueryGenerationLogs(context.Context, string, int) ([]storage.GenerationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.GenerationLog{}, f.genLogs...), nil
}

type fakeCoach struct {
	menu         models.Workout
	menuErr      error
	lastReq      prompt.MenuRequest
	alternatives []string
	lastName     string
	lastLang     models.Language
	answer       string
}

func (c *fakeCoach) Menu(_ context.Context, req prompt.MenuRequest) (models.Workout, error) {
	c.lastReq = req
	if c.menuErr != nil {
		return models.Workout{}, c.menuErr
	}
	return c.menu, nil
}

func (c *fakeCoach) Alternatives(_ context.Context, name string, lang models.Language) ([]string, error) {
	c.lastName, c.lastLang = name, lang
	return c.alternatives, nil
}

func (c *fakeCoach) Answer(_ context.Context, name, _ string, lang models.Language) (string, error) {
	c.lastName, c.lastLang = name, lang
	return c.answer, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type harness struct {
	srv      *Server
	db       *fakeStore
	coach    *fakeCoach
	clock    *testutil.FakeClock
	sessions *session.Store
	events   *fakePublisher
	metrics  *metrics.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithBackend(t, nil)
}

// newHarnessWithBackend builds a harness whose session backend is passed
// through wrap when wrap is non-nil.
func newHarnessWithBackend(t *testing.T, wrap func(session.Backend) session.Backend) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var backend session.Backend
	backend, err := session.OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("opening session store: %v", err)
	}
	if wrap != nil {
		backend = wrap(backend)
	}
	sessions := session.NewStore(backend, log)
	t.Cleanup(func() { sessions.Close() })

	db := newFakeStore()
	m, _ := metrics.NewTestManagerAndRegistry()
	notifier := notify.New(db, m, log)
	clock := testutil.NewFakeClock(epoch)
	timers := restimer.NewRegistry(clock, restimer.DefaultDuration, notifier.RestOver)
	coach := &fakeCoach{menu: testutil.SampleWorkout(), alternatives: []string{"Push-up", "Dips", "Chest Press"}, answer: "Keep your back flat."}
	pub := &fakePublisher{}

	srv := New(Deps{
		DB:       db,
		Coach:    coach,
		Sessions: sessions,
		Timers:   timers,
		Notifier: notifier,
		Events:   pub,
		Metrics:  m,
		Log:      log,
	})
	srv.now = clock.Now

	return &harness{srv: srv, db: db, coach: coach, clock: clock, sessions: sessions, events: pub, metrics: m}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

// seedDraft stores the sample workout as the local user's draft.
func (h *harness) seedDraft(t *testing.T) models.Workout {
	t.Helper()
	w := testutil.SampleWorkout()
	if err := h.sessions.Slot("local").Save(context.Background(), w); err != nil {
		t.Fatalf("saving draft: %v", err)
	}
	return w
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no other identity middleware is configured.
func TestHandleMeDefault(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/me", nil)
	wantStatus(t, rec, http.StatusOK)

	info := decode[UserInfo](t, rec)
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHealthz verifies the health check reflects database reachability.
func TestHealthz(t *testing.T) {
	h := newHarness(t)
	wantStatus(t, h.do(t, http.MethodGet, "/healthz", nil), http.StatusOK)

	h.db.pingErr = errors.New("connection refused")
	wantStatus(t, h.do(t, http.MethodGet, "/healthz", nil), http.StatusServiceUnavailable)
}

// TestGenerateMenu verifies a generated workout becomes the draft and the
// request is built from the stored profile and history.
func TestGenerateMenu(t *testing.T) {
	h := newHarness(t)
	h.db.profiles["local"] = models.Profile{UserID: "local", Goal: models.GoalStrength, Level: models.LevelBeginner, Language: models.LanguageEnglish}
	h.db.history = []models.HistoryEntry{{Date: "2026-10-16", Theme: "Legs"}}

	rec := h.do(t, http.MethodPost, "/api/v1/menu", map[string]any{"training_time": 45, "user_request": "no squats"})
	wantStatus(t, rec, http.StatusCreated)

	view := decode[draftView](t, rec)
	if view.Workout.Theme != "Push day" {
		t.Errorf("theme = %q, want %q", view.Workout.Theme, "Push day")
	}
	if view.Progress.Total != 6 || view.Progress.Done != 1 {
		t.Errorf("progress = %+v, want 1/6", view.Progress)
	}

	req := h.coach.lastReq
	if req.TrainingTime != 45 || req.UserRequest != "no squats" {
		t.Errorf("request = %+v", req)
	}
	if req.Goal != models.GoalStrength || req.Level != models.LevelBeginner || req.Language != models.LanguageEnglish {
		t.Errorf("profile not applied: %+v", req)
	}
	if req.Today != "2026-10-18" {
		t.Errorf("today = %q, want 2026-10-18", req.Today)
	}
	if len(req.History) != 1 || req.History[0].Theme != "Legs" {
		t.Errorf("history = %+v", req.History)
	}

	if !h.sessions.Slot("local").HasDraft(context.Background()) {
		t.Error("draft was not saved")
	}
	if len(h.db.genLogs) != 1 || h.db.genLogs[0].Status != "success" || h.db.genLogs[0].Model != "gemini-2.5-pro" {
		t.Errorf("generation logs = %+v", h.db.genLogs)
	}
}

// TestGenerateMenuFailureKeepsDraft verifies a failed generation leaves the
// existing draft untouched and is logged as an error.
func TestGenerateMenuFailureKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)
	h.coach.menuErr = errors.New("upstream 500")

	rec := h.do(t, http.MethodPost, "/api/v1/menu", map[string]any{"training_time": 30})
	wantStatus(t, rec, http.StatusBadGateway)

	draft, ok := h.sessions.Slot("local").Load(context.Background())
	if !ok || draft.ID != "w-1" {
		t.Errorf("draft after failure = %+v, %v; want the seeded draft", draft.ID, ok)
	}
	if len(h.db.genLogs) != 1 || h.db.genLogs[0].Status != "error" {
		t.Errorf("generation logs = %+v", h.db.genLogs)
	}
}

// TestGenerateMenuRejectsBadTrainingTime verifies non-positive durations are refused.
func TestGenerateMenuRejectsBadTrainingTime(t *testing.T) {
	h := newHarness(t)
	for _, minutes := range []int{0, -10} {
		rec := h.do(t, http.MethodPost, "/api/v1/menu", map[string]any{"training_time": minutes})
		wantStatus(t, rec, http.StatusBadRequest)
	}
	if len(h.db.genLogs) != 0 {
		t.Errorf("model was called for an invalid request")
	}
}

// TestDraftMissing verifies draft endpoints answer 404 when there is no draft.
func TestDraftMissing(t *testing.T) {
	h := newHarness(t)
	wantStatus(t, h.do(t, http.MethodGet, "/api/v1/draft", nil), http.StatusNotFound)
	wantStatus(t, h.do(t, http.MethodPost, "/api/v1/draft/exercises/e-2/sets/s-1/toggle", nil), http.StatusNotFound)
	wantStatus(t, h.do(t, http.MethodPost, "/api/v1/draft/complete", nil), http.StatusNotFound)

	rec := h.do(t, http.MethodGet, "/api/v1/draft/exists", nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[map[string]bool](t, rec); got["exists"] {
		t.Error("exists = true with no draft")
	}
}

// TestSetField verifies weight edits are stored and unparsable input is ignored.
func TestSetField(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)
	path := "/api/v1/draft/exercises/e-2/sets/s-3"

	rec := h.do(t, http.MethodPatch, path, map[string]string{"field": "weight", "value": "65"})
	wantStatus(t, rec, http.StatusOK)
	view := decode[draftView](t, rec)
	if got := view.Workout.Sections[1].Exercises[0].Sets[2].Weight.Value(); got != 65 {
		t.Errorf("weight = %v, want 65", got)
	}

	rec = h.do(t, http.MethodPatch, path, map[string]string{"field": "weight", "value": "abc"})
	wantStatus(t, rec, http.StatusOK)
	view = decode[draftView](t, rec)
	if got := view.Workout.Sections[1].Exercises[0].Sets[2].Weight.Value(); got != 65 {
		t.Errorf("weight after bad input = %v, want 65", got)
	}

	rec = h.do(t, http.MethodPatch, path, map[string]string{"field": "tempo", "value": "3"})
	wantStatus(t, rec, http.StatusBadRequest)
}

// TestToggleStartsAndCancelsTimer verifies completing a set starts a 90s
// rest and reopening it cancels the countdown without a signal.
func TestToggleStartsAndCancelsTimer(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)
	h.db.profiles["local"] = models.Profile{UserID: "local", Goal: models.GoalStrength, Level: models.LevelBeginner, NotificationPermission: models.PermissionGranted}
	path := "/api/v1/draft/exercises/e-2/sets/s-1/toggle"

	rec := h.do(t, http.MethodPost, path, nil)
	wantStatus(t, rec, http.StatusOK)
	resp := decode[toggleResponse](t, rec)
	if resp.Transition != "completed" {
		t.Errorf("transition = %q, want completed", resp.Transition)
	}
	if resp.Timer.State != restimer.StateRunning {
		t.Fatalf("timer state = %q, want running", resp.Timer.State)
	}
	if want := epoch.Add(90 * time.Second); resp.Timer.ExpiresAt == nil || !resp.Timer.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", resp.Timer.ExpiresAt, want)
	}
	if !resp.Workout.Sections[1].Exercises[0].Sets[0].IsCompleted {
		t.Error("set not marked completed")
	}

	rec = h.do(t, http.MethodPost, path, nil)
	wantStatus(t, rec, http.StatusOK)
	resp = decode[toggleResponse](t, rec)
	if resp.Transition != "reopened" || resp.Timer.State != restimer.StateIdle {
		t.Errorf("after reopen: transition %q, timer %q", resp.Transition, resp.Timer.State)
	}

	h.clock.Advance(2 * time.Minute)
	notes := decode[[]notify.Notification](t, h.do(t, http.MethodGet, "/api/v1/notifications", nil))
	if len(notes) != 0 {
		t.Errorf("notifications after cancel = %d, want 0", len(notes))
	}
}

// gatedBackend blocks the first read of key until release is closed.
type gatedBackend struct {
	session.Backend
	key     string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if key == g.key {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.Backend.Get(ctx, key)
}

// TestConcurrentTogglesKeepTimerInStep verifies a reopen that arrives while a
// completion is still deciding on the timer cannot leave the timer running
// for a reopened set.
func TestConcurrentTogglesKeepTimerInStep(t *testing.T) {
	gate := &gatedBackend{
		key:     "local:timerPreference",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	h := newHarnessWithBackend(t, func(b session.Backend) session.Backend {
		gate.Backend = b
		return gate
	})
	h.seedDraft(t)
	path := "/api/v1/draft/exercises/e-2/sets/s-1/toggle"

	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = h.do(t, http.MethodPost, path, nil)
	}()
	<-gate.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = h.do(t, http.MethodPost, path, nil)
	}()
	// give the reopen a chance to run ahead of the blocked completion
	time.Sleep(50 * time.Millisecond)
	close(gate.release)
	wg.Wait()

	first := decode[toggleResponse](t, results[0])
	second := decode[toggleResponse](t, results[1])
	if first.Transition != "completed" || second.Transition != "reopened" {
		t.Fatalf("transitions = %q, %q, want completed, reopened", first.Transition, second.Transition)
	}

	draft, found := h.sessions.Slot("local").Load(context.Background())
	if !found {
		t.Fatal("draft missing after toggles")
	}
	if draft.Sections[1].Exercises[0].Sets[0].IsCompleted {
		t.Error("set still completed after reopen")
	}
	if snap := h.srv.timers.Snapshot("local"); snap.State != restimer.StateIdle {
		t.Errorf("timer = %s after reopen, want idle", snap.State)
	}
}

// TestTimerExpiryNotifies verifies an expired rest is queued for a user who
// granted notification permission.
func TestTimerExpiryNotifies(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)
	wantStatus(t, h.do(t, http.MethodPut, "/api/v1/notifications/permission", map[string]string{"permission": "granted"}), http.StatusOK)

	wantStatus(t, h.do(t, http.MethodPost, "/api/v1/draft/exercises/e-2/sets/s-1/toggle", nil), http.StatusOK)
	h.clock.Advance(90 * time.Second)

	notes := decode[[]notify.Notification](t, h.do(t, http.MethodGet, "/api/v1/notifications", nil))
	if len(notes) != 1 || notes[0].Kind != "rest_over" {
		t.Fatalf("notifications = %+v, want one rest_over", notes)
	}

	timer := decode[restimer.Snapshot](t, h.do(t, http.MethodGet, "/api/v1/timer", nil))
	if timer.State != restimer.StateIdle {
		t.Errorf("timer state after expiry = %q, want idle", timer.State)
	}
}

// TestTimerPreferenceDisabled verifies no countdown starts when the user
// turned the rest timer off.
func TestTimerPreferenceDisabled(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)

	pref := decode[map[string]bool](t, h.do(t, http.MethodGet, "/api/v1/timer/preference", nil))
	if !pref["enabled"] {
		t.Error("timer preference should default to enabled")
	}
	wantStatus(t, h.do(t, http.MethodPut, "/api/v1/timer/preference", map[string]bool{"enabled": false}), http.StatusOK)

	resp := decode[toggleResponse](t, h.do(t, http.MethodPost, "/api/v1/draft/exercises/e-2/sets/s-1/toggle", nil))
	if resp.Transition != "completed" {
		t.Errorf("transition = %q, want completed", resp.Transition)
	}
	if resp.Timer.State != restimer.StateIdle {
		t.Errorf("timer state = %q, want idle", resp.Timer.State)
	}

	wantStatus(t, h.do(t, http.MethodPut, "/api/v1/timer/preference", map[string]any{}), http.StatusBadRequest)
}

// TestCancelTimer verifies explicit dismissal returns the timer to idle.
func TestCancelTimer(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)
	wantStatus(t, h.do(t, http.MethodPost, "/api/v1/draft/exercises/e-2/sets/s-1/toggle", nil), http.StatusOK)

	rec := h.do(t, http.MethodDelete, "/api/v1/timer", nil)
	wantStatus(t, rec, http.StatusOK)
	if snap := decode[restimer.Snapshot](t, rec); snap.State != restimer.StateIdle {
		t.Errorf("state = %q, want idle", snap.State)
	}
	if n := h.clock.Pending(); n != 0 {
		t.Errorf("pending timers = %d, want 0", n)
	}
}

// TestSubstituteExercise verifies renaming keeps the exercise's sets.
func TestSubstituteExercise(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)
	path := "/api/v1/draft/exercises/e-2/name"

	rec := h.do(t, http.MethodPut, path, map[string]string{"name": "Incline Bench Press"})
	wantStatus(t, rec, http.StatusOK)
	ex := decode[draftView](t, rec).Workout.Sections[1].Exercises[0]
	if ex.Name != "Incline Bench Press" {
		t.Errorf("name = %q", ex.Name)
	}
	if len(ex.Sets) != 3 {
		t.Errorf("sets = %d, want 3", len(ex.Sets))
	}

	wantStatus(t, h.do(t, http.MethodPut, path, map[string]string{"name": "  "}), http.StatusBadRequest)
}

// TestAlternatives verifies suggestions are requested for the exercise's name
// in the profile language.
func TestAlternatives(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)
	wantStatus(t, h.do(t, http.MethodPut, "/api/v1/profile/language", map[string]string{"language": "it"}), http.StatusOK)

	rec := h.do(t, http.MethodPost, "/api/v1/draft/exercises/e-2/alternatives", nil)
	wantStatus(t, rec, http.StatusOK)
	got := decode[map[string][]string](t, rec)
	if len(got["alternatives"]) != 3 {
		t.Errorf("alternatives = %v", got)
	}
	if h.coach.lastName != "Bench Press" || h.coach.lastLang != models.LanguageItalian {
		t.Errorf("coach called with %q/%q", h.coach.lastName, h.coach.lastLang)
	}

	wantStatus(t, h.do(t, http.MethodPost, "/api/v1/draft/exercises/nope/alternatives", nil), http.StatusNotFound)
}

// TestQuestion verifies free-text questions are answered for the exercise.
func TestQuestion(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)
	path := "/api/v1/draft/exercises/e-3/questions"

	rec := h.do(t, http.MethodPost, path, map[string]string{"question": "How deep should I go?"})
	wantStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec); got["answer"] != "Keep your back flat." {
		t.Errorf("answer = %q", got["answer"])
	}
	if h.coach.lastName != "Dumbbell Fly" {
		t.Errorf("exercise = %q, want Dumbbell Fly", h.coach.lastName)
	}

	wantStatus(t, h.do(t, http.MethodPost, path, map[string]string{"question": ""}), http.StatusBadRequest)
}

// TestCompleteDraft verifies completion stores the workout, clears the draft
// and publishes an event.
func TestCompleteDraft(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)

	rec := h.do(t, http.MethodPost, "/api/v1/draft/complete", nil)
	wantStatus(t, rec, http.StatusCreated)
	saved := decode[models.WorkoutRecord](t, rec)
	if saved.ID.String() == "w-1" || saved.Theme != "Push day" || saved.Date != "2026-10-18" {
		t.Errorf("record = %+v", saved)
	}

	if h.sessions.Slot("local").HasDraft(context.Background()) {
		t.Error("draft still present after completion")
	}
	if len(h.events.events) != 1 {
		t.Fatalf("events = %d, want 1", len(h.events.events))
	}
	e := h.events.events[0]
	if e.Type != events.TypeWorkoutCompleted || e.WorkoutID != saved.ID.String() || e.Volume != 1268 || e.Sets != 1 {
		t.Errorf("event = %+v", e)
	}

	got := decode[models.WorkoutRecord](t, h.do(t, http.MethodGet, "/api/v1/workouts/"+saved.ID.String(), nil))
	if got.ID != saved.ID {
		t.Errorf("history detail id = %v, want %v", got.ID, saved.ID)
	}
}

// TestCompleteDraftFailureKeepsDraft verifies a failed insert leaves the draft in place.
func TestCompleteDraftFailureKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)
	h.db.insertErr = errors.New("connection reset")

	wantStatus(t, h.do(t, http.MethodPost, "/api/v1/draft/complete", nil), http.StatusInternalServerError)
	if !h.sessions.Slot("local").HasDraft(context.Background()) {
		t.Error("draft cleared after a failed insert")
	}
	if len(h.events.events) != 0 {
		t.Errorf("events = %d, want 0", len(h.events.events))
	}
}

// TestDiscardDraft verifies the draft can be thrown away.
func TestDiscardDraft(t *testing.T) {
	h := newHarness(t)
	h.seedDraft(t)

	wantStatus(t, h.do(t, http.MethodDelete, "/api/v1/draft", nil), http.StatusNoContent)
	wantStatus(t, h.do(t, http.MethodGet, "/api/v1/draft", nil), http.StatusNotFound)
}

// TestWorkoutLookup covers invalid, unknown and deleted workout IDs.
func TestWorkoutLookup(t *testing.T) {
	h := newHarness(t)
	wantStatus(t, h.do(t, http.MethodGet, "/api/v1/workouts/not-a-uuid", nil), http.StatusBadRequest)
	wantStatus(t, h.do(t, http.MethodGet, "/api/v1/workouts/"+uuid.NewString(), nil), http.StatusNotFound)

	rec, _ := h.db.InsertWorkout(context.Background(), "local", testutil.SampleWorkout())
	path := "/api/v1/workouts/" + rec.ID.String()
	wantStatus(t, h.do(t, http.MethodDelete, path, nil), http.StatusNoContent)
	wantStatus(t, h.do(t, http.MethodGet, path, nil), http.StatusNotFound)
	wantStatus(t, h.do(t, http.MethodDelete, path, nil), http.StatusNotFound)

	if len(h.events.events) != 1 || h.events.events[0].Type != events.TypeWorkoutDeleted {
		t.Errorf("events = %+v, want one workout.deleted", h.events.events)
	}
}

// TestWorkoutsScopedToUser verifies one user cannot read another's history.
func TestWorkoutsScopedToUser(t *testing.T) {
	h := newHarness(t)
	rec, _ := h.db.InsertWorkout(context.Background(), "someone-else", testutil.SampleWorkout())

	wantStatus(t, h.do(t, http.MethodGet, "/api/v1/workouts/"+rec.ID.String(), nil), http.StatusNotFound)
	list := decode[[]models.WorkoutRecord](t, h.do(t, http.MethodGet, "/api/v1/workouts", nil))
	if len(list) != 0 {
		t.Errorf("list = %d entries, want 0", len(list))
	}
}

// TestVolumeBucket verifies the bucket parameter is validated.
func TestVolumeBucket(t *testing.T) {
	h := newHarness(t)
	wantStatus(t, h.do(t, http.MethodGet, "/api/v1/dashboard/volume", nil), http.StatusOK)
	wantStatus(t, h.do(t, http.MethodGet, "/api/v1/dashboard/volume?bucket=week", nil), http.StatusOK)
	wantStatus(t, h.do(t, http.MethodGet, "/api/v1/dashboard/volume?bucket=year", nil), http.StatusBadRequest)
}

// TestPutProfile verifies profile validation and that omitted settings are kept.
func TestPutProfile(t *testing.T) {
	h := newHarness(t)
	wantStatus(t, h.do(t, http.MethodPut, "/api/v1/profile/language", map[string]string{"language": "en"}), http.StatusOK)

	rec := h.do(t, http.MethodPut, "/api/v1/profile", map[string]string{"goal": "diet", "level": "advanced", "personal_info": "bad knee"})
	wantStatus(t, rec, http.StatusOK)
	p := decode[models.Profile](t, rec)
	if p.Goal != models.GoalDiet || p.Level != models.LevelAdvanced || p.PersonalInfo != "bad knee" {
		t.Errorf("profile = %+v", p)
	}
	if p.Language != models.LanguageEnglish {
		t.Errorf("language = %q, want en", p.Language)
	}

	wantStatus(t, h.do(t, http.MethodPut, "/api/v1/profile", map[string]string{"goal": "bulk", "level": "advanced"}), http.StatusBadRequest)
	wantStatus(t, h.do(t, http.MethodPut, "/api/v1/profile/language", map[string]string{"language": "fr"}), http.StatusBadRequest)
	wantStatus(t, h.do(t, http.MethodPut, "/api/v1/notifications/permission", map[string]string{"permission": "maybe"}), http.StatusBadRequest)
}
