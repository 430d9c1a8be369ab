package tracking

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetIsLazyAndStable(t *testing.T) {
	s := newStore(false)

	a := s.Get("/repo")
	b := s.Get("/repo/./sub/..")
	assert.Same(t, a, b)
	assert.Equal(t, filepath.Clean("/repo"), a.Key())
	assert.Equal(t, filepath.Clean("/repo"), s.Normalize("/repo/"))
}

func TestStoreCaseFolding(t *testing.T) {
	folded := newStore(true)
	assert.Same(t, folded.Get("/Work/Repo"), folded.Get("/work/repo"))

	exact := newStore(false)
	assert.NotSame(t, exact.Get("/Work/Repo"), exact.Get("/work/repo"))
}

func TestObserveBranch(t *testing.T) {
	st := newState("/repo")

	assert.False(t, st.ObserveBranch("main"), "first observation only seeds")
	assert.False(t, st.ObserveBranch("main"), "unchanged")
	assert.False(t, st.ObserveBranch(""), "detached is ignored")
	assert.Equal(t, "main", st.LastBranch())
	assert.True(t, st.ObserveBranch("feature-1"))
	assert.Equal(t, "feature-1", st.LastBranch())
}

func TestOpenedSet(t *testing.T) {
	st := newState("/repo")
	st.Track("file:///repo/b")
	st.Track("file:///repo/a")

	assert.Equal(t, []string{"file:///repo/a", "file:///repo/b"}, st.Opened())
	assert.True(t, st.IsTracked("file:///repo/a"))

	st.Untrack("file:///repo/a", "file:///repo/unknown")
	assert.Equal(t, []string{"file:///repo/b"}, st.Opened())

	st.ClearOpened()
	assert.Empty(t, st.Opened())
}

func TestArmTimerRestarts(t *testing.T) {
	st := newState("/repo")
	var fired atomic.Int32

	st.ArmTimer(30*time.Millisecond, func() { fired.Add(1) })
	time.Sleep(10 * time.Millisecond)
	st.ArmTimer(30*time.Millisecond, func() { fired.Add(1) })
	time.Sleep(10 * time.Millisecond)
	st.ArmTimer(30*time.Millisecond, func() { fired.Add(1) })
	assert.True(t, st.TimerArmed())

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load(), "replaced timers never fire")
	assert.False(t, st.TimerArmed())
}

func TestStopTimers(t *testing.T) {
	st := newState("/repo")
	var fired atomic.Int32

	st.ArmTimer(20*time.Millisecond, func() { fired.Add(1) })
	st.ArmRefresh(20*time.Millisecond, func() { fired.Add(1) })
	st.StopTimers()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestEnabled(t *testing.T) {
	s := newStore(false)
	assert.True(t, s.Get("/repo").Enabled())

	s.SetEnabled("/repo", false)
	assert.False(t, s.Get("/repo").Enabled())
}

func TestRecordPass(t *testing.T) {
	st := newState("/repo")
	now := time.Now()
	st.RecordPass(now)

	n, at := st.Passes()
	assert.Equal(t, 1, n)
	assert.Equal(t, now, at)
}
