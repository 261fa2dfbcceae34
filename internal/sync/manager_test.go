package sync

import (
	"context"
	"errors"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"vocabtrainer/internal/settings"
	"vocabtrainer/internal/storage"
	"vocabtrainer/internal/storage/mocks"
	"vocabtrainer/internal/synccodec"
)

const testPassphrase = "correct horse battery staple"

// fakeRemote records pushes and serves a canned pull, standing in for the
// HTTP client.
type fakeRemote struct {
	mu       gosync.Mutex
	pushes   []PushRequest
	pushResp *PushResponse
	pushErr  error
	pullResp *PullResponse
	pullErr  error
	pushed   chan struct{}
}

func (f *fakeRemote) Push(ctx context.Context, req PushRequest) (*PushResponse, error) {
	f.mu.Lock()
	f.pushes = append(f.pushes, req)
	f.mu.Unlock()
	if f.pushed != nil {
		f.pushed <- struct{}{}
	}
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	if f.pushResp != nil {
		return f.pushResp, nil
	}
	return &PushResponse{OK: true, Stored: true, UpdatedAt: req.UpdatedAt}, nil
}

func (f *fakeRemote) Pull(ctx context.Context, keyID string) (*PullResponse, error) {
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	if f.pullResp != nil {
		return f.pullResp, nil
	}
	return &PullResponse{Found: false}, nil
}

func (f *fakeRemote) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func testStores(t *testing.T) (*storage.ProgressRepo, *storage.SettingsRepo) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return storage.NewProgressRepo(db), storage.NewSettingsRepo(db)
}

func configureSync(t *testing.T, sets storage.SettingsStore) {
	t.Helper()
	err := sets.SetMany(context.Background(), map[string]any{
		settings.KeySyncEndpoint: "https://sync.example.com",
		settings.KeySyncKey:      testPassphrase,
	})
	if err != nil {
		t.Fatalf("failed to configure sync: %v", err)
	}
}

func testManager(t *testing.T, remote Remote) (*Manager, *storage.ProgressRepo, *storage.SettingsRepo) {
	t.Helper()
	progress, sets := testStores(t)
	m := NewManager(progress, sets, nil)
	m.remoteFor = func(string) Remote { return remote }
	return m, progress, sets
}

func TestManager_PushNow(t *testing.T) {
	remote := &fakeRemote{}
	m, progress, sets := testManager(t, remote)
	configureSync(t, sets)
	ctx := context.Background()

	rec := storage.NewProgressRecord(7)
	rec.MeaningCorrect = 2
	if err := progress.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}

	resp, err := m.PushNow(ctx, "manual")
	if err != nil {
		t.Fatalf("PushNow() error = %v", err)
	}
	if !resp.Stored {
		t.Error("expected stored response")
	}
	if remote.pushCount() != 1 {
		t.Fatalf("got %d pushes, want 1", remote.pushCount())
	}

	req := remote.pushes[0]
	wantKeyID, _ := synccodec.KeyID(testPassphrase)
	if req.KeyID != wantKeyID {
		t.Errorf("keyId = %q, want derived hash", req.KeyID)
	}
	if req.Reason != "manual" {
		t.Errorf("reason = %q, want manual", req.Reason)
	}

	// The payload must decrypt back to the pushed progress.
	state, err := synccodec.Decrypt(testPassphrase, req.Payload)
	if err != nil {
		t.Fatalf("pushed payload does not decrypt: %v", err)
	}
	if len(state.Progress) != 1 || state.Progress[0].WordID != 7 {
		t.Errorf("pushed progress = %+v", state.Progress)
	}
	if _, ok := state.Settings[settings.KeySyncKey]; ok {
		t.Fatal("passphrase leaked into pushed payload")
	}

	all, err := sets.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if all[settings.KeySyncLastAt] == nil {
		t.Error("syncLastAt not recorded after a successful push")
	}
	if all[settings.KeySyncLastError] != nil {
		t.Errorf("syncLastError = %v, want cleared", all[settings.KeySyncLastError])
	}
}

func TestManager_PushNow_NotConfigured(t *testing.T) {
	m, _, _ := testManager(t, &fakeRemote{})

	if _, err := m.PushNow(context.Background(), "manual"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestManager_PushNow_RemoteFailureRecorded(t *testing.T) {
	remote := &fakeRemote{pushErr: ErrRemote}
	m, _, sets := testManager(t, remote)
	configureSync(t, sets)

	if _, err := m.PushNow(context.Background(), "manual"); !errors.Is(err, ErrRemote) {
		t.Fatalf("error = %v, want ErrRemote", err)
	}

	all, err := sets.GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if all[settings.KeySyncLastError] == nil {
		t.Error("syncLastError not recorded after a failed push")
	}
}

func TestManager_PushNow_InFlight(t *testing.T) {
	m, _, sets := testManager(t, &fakeRemote{})
	configureSync(t, sets)

	if !m.acquire() {
		t.Fatal("failed to acquire in-flight guard")
	}
	defer m.release()

	if _, err := m.PushNow(context.Background(), "manual"); !errors.Is(err, ErrPushInFlight) {
		t.Errorf("error = %v, want ErrPushInFlight", err)
	}
}

func TestManager_PullAndRestore(t *testing.T) {
	ctx := context.Background()
	old := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := old.Add(time.Hour)

	remoteState := synccodec.NewState(
		settings.Settings{settings.KeyTheme: "dark"},
		[]storage.ProgressRecord{
			{WordID: 1, MeaningCorrect: 10, UpdatedAt: &newer},
			{WordID: 2, MeaningCorrect: 20, UpdatedAt: &old},
		},
		newer,
	)
	env, err := synccodec.Encrypt(testPassphrase, remoteState)
	if err != nil {
		t.Fatal(err)
	}
	remote := &fakeRemote{pullResp: &PullResponse{Found: true, UpdatedAt: newer.Format(time.RFC3339), Payload: env}}

	m, progress, sets := testManager(t, remote)
	configureSync(t, sets)

	// Local word 2 is fresher than the remote copy; word 3 is local only.
	if err := progress.PutMany(ctx, []storage.ProgressRecord{
		{WordID: 1, MeaningCorrect: 1, UpdatedAt: &old},
		{WordID: 2, MeaningCorrect: 2, UpdatedAt: &newer},
		{WordID: 3, MeaningCorrect: 3, UpdatedAt: &old},
	}); err != nil {
		t.Fatal(err)
	}

	restored := false
	m.OnRestore = func() { restored = true }

	if err := m.PullAndRestore(ctx); err != nil {
		t.Fatalf("PullAndRestore() error = %v", err)
	}
	if !restored {
		t.Error("OnRestore hook not invoked")
	}

	all, err := progress.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	byID := make(map[int]storage.ProgressRecord, len(all))
	for _, rec := range all {
		byID[rec.WordID] = rec
	}
	if byID[1].MeaningCorrect != 10 {
		t.Errorf("word 1 = %d, want fresher remote value 10", byID[1].MeaningCorrect)
	}
	if byID[2].MeaningCorrect != 2 {
		t.Errorf("word 2 = %d, want fresher local value 2", byID[2].MeaningCorrect)
	}
	if byID[3].MeaningCorrect != 3 {
		t.Error("local-only word 3 lost in merge")
	}

	got, err := sets.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got[settings.KeyTheme] != "dark" {
		t.Errorf("theme = %v, want pulled remote value", got[settings.KeyTheme])
	}
	if got[settings.KeySyncEndpoint] != "https://sync.example.com" {
		t.Error("device-local endpoint overwritten by pull")
	}
	if got[settings.KeySyncKey] != testPassphrase {
		t.Error("device-local passphrase overwritten by pull")
	}
}

func TestManager_PullAndRestore_NothingToRestore(t *testing.T) {
	m, _, sets := testManager(t, &fakeRemote{pullResp: &PullResponse{Found: false}})
	configureSync(t, sets)

	if err := m.PullAndRestore(context.Background()); !errors.Is(err, ErrNothingToRestore) {
		t.Errorf("error = %v, want ErrNothingToRestore", err)
	}
}

func TestManager_PullAndRestore_WrongPassphraseLeavesLocalUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Payload encrypted under a different passphrase. No progress store method
	// may be called; the mock fails the test on any unexpected call.
	env, err := synccodec.Encrypt("a different passphrase!", synccodec.State{Schema: synccodec.SchemaVersion})
	if err != nil {
		t.Fatal(err)
	}
	remote := &fakeRemote{pullResp: &PullResponse{Found: true, Payload: env}}

	mockProgress := mocks.NewMockProgressStore(ctrl)
	_, sets := testStores(t)
	configureSync(t, sets)

	m := NewManager(mockProgress, sets, nil)
	m.remoteFor = func(string) Remote { return remote }

	if err := m.PullAndRestore(context.Background()); !errors.Is(err, synccodec.ErrDecrypt) {
		t.Fatalf("error = %v, want ErrDecrypt", err)
	}

	all, err := sets.GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if all[settings.KeySyncLastError] == nil {
		t.Error("syncLastError not recorded after a failed decrypt")
	}
}

func TestManager_PullAndRestore_MergeNotPersistedOnStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env, err := synccodec.Encrypt(testPassphrase, synccodec.State{Schema: synccodec.SchemaVersion})
	if err != nil {
		t.Fatal(err)
	}
	remote := &fakeRemote{pullResp: &PullResponse{Found: true, Payload: env}}

	storeErr := errors.New("disk full")
	mockProgress := mocks.NewMockProgressStore(ctrl)
	mockProgress.EXPECT().GetAll(gomock.Any()).Return(nil, nil)
	mockProgress.EXPECT().PutMany(gomock.Any(), gomock.Any()).Return(storeErr)

	_, sets := testStores(t)
	configureSync(t, sets)

	m := NewManager(mockProgress, sets, nil)
	m.remoteFor = func(string) Remote { return remote }

	if err := m.PullAndRestore(context.Background()); !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want store failure surfaced", err)
	}
}

func TestManager_SchedulePush_Debounces(t *testing.T) {
	remote := &fakeRemote{pushed: make(chan struct{}, 4)}
	m, _, sets := testManager(t, remote)
	configureSync(t, sets)
	m.debounce = 20 * time.Millisecond

	m.SchedulePush("grade")
	m.SchedulePush("flag")
	m.SchedulePush("grade")

	select {
	case <-remote.pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced push never fired")
	}

	// A rapid burst collapses into exactly one push.
	time.Sleep(100 * time.Millisecond)
	if got := remote.pushCount(); got != 1 {
		t.Errorf("got %d pushes, want 1", got)
	}
	if remote.pushes[0].Reason != "grade" {
		t.Errorf("reason = %q, want the latest scheduled reason", remote.pushes[0].Reason)
	}
}

func TestManager_SchedulePush_NoOpWhenAutoDisabled(t *testing.T) {
	remote := &fakeRemote{}
	m, _, sets := testManager(t, remote)
	configureSync(t, sets)
	if err := sets.Set(context.Background(), settings.KeySyncAuto, false); err != nil {
		t.Fatal(err)
	}
	m.debounce = 10 * time.Millisecond

	m.SchedulePush("grade")
	time.Sleep(100 * time.Millisecond)
	if got := remote.pushCount(); got != 0 {
		t.Errorf("got %d pushes with auto sync disabled, want 0", got)
	}
}

func TestManager_CancelScheduled(t *testing.T) {
	remote := &fakeRemote{}
	m, _, sets := testManager(t, remote)
	configureSync(t, sets)
	m.debounce = 20 * time.Millisecond

	m.SchedulePush("grade")
	m.CancelScheduled()

	time.Sleep(100 * time.Millisecond)
	if got := remote.pushCount(); got != 0 {
		t.Errorf("got %d pushes after cancel, want 0", got)
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://sync.example.com/", "https://sync.example.com"},
		{"  https://sync.example.com// ", "https://sync.example.com"},
		{"https://sync.example.com", "https://sync.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeEndpoint(tt.in); got != tt.want {
			t.Errorf("SanitizeEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
