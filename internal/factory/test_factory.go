package factory

import (
	"testing"

	"github.com/coder/quartz"

	"github.com/mcoot/openface/internal/dependencies/mocks"
	"github.com/mcoot/openface/internal/services/auth"
	"github.com/mcoot/openface/internal/services/history"
	"github.com/mcoot/openface/internal/services/recovery"
	"github.com/mcoot/openface/internal/storage/memory"
	"github.com/mcoot/openface/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock   *quartz.Mock
	MockRandom  *mocks.MockRandom
	MemoryStore *memory.Storage
	Recorder    *history.MemoryRecorder
}

// NewTestApp creates an App backed by memory storage, a mock clock and
// queued randomness. Room timers are stopped when the test ends.
func NewTestApp(t testing.TB) *TestApp {
	store := memory.New()
	recorder := history.NewMemory()
	mockClock := quartz.NewMock(t)
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, recorder, mockClock, mockRandom, dependencyConfig{
		auth:     auth.DefaultConfig(),
		recovery: recovery.DefaultConfig(),
	}, testutil.NopLogger())
	t.Cleanup(app.Timers.Stop)

	return &TestApp{
		App:         app,
		MockClock:   mockClock,
		MockRandom:  mockRandom,
		MemoryStore: store,
		Recorder:    recorder,
	}
}
