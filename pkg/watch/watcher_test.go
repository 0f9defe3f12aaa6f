package watch_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/sweep/pkg/watch"
)

const testInterval = 10 * time.Millisecond

func writeConfigFile(t *testing.T, path, logDir, body string) {
	t.Helper()

	data := fmt.Sprintf(`
data_name: mnist
data_dir: /data
log_dir: %s
%s`, logDir, body)

	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
}

// touch bumps the file's modification time by a fixed offset so consecutive
// writes within one timestamp granule still register as changes.
func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()

	mtime := time.Now().Add(offset)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func newTestWatcher(t *testing.T, body string, opts ...watch.Opt) (*watch.Watcher, string, string) {
	t.Helper()

	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	path := filepath.Join(dir, "sweep.yaml")
	writeConfigFile(t, path, logDir, body)

	opts = append([]watch.Opt{watch.WithInterval(testInterval)}, opts...)

	return watch.New(path, watch.FileLoader(path), opts...), path, logDir
}

func startTestWatcher(t *testing.T, body string, opts ...watch.Opt) (*watch.Watcher, string, string) {
	t.Helper()

	w, path, logDir := newTestWatcher(t, body, opts...)
	require.NoError(t, w.Start())
	t.Cleanup(func() {
		w.Stop()
		<-w.Done()
	})

	return w, path, logDir
}

func TestWatcher_StartPublishesSnapshot(t *testing.T) {
	t.Parallel()

	w, _, _ := startTestWatcher(t, `
batch_size: [8, 16]
epochs: 5
`)

	snap := w.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, int64(1), snap.Version)
	assert.Len(t, snap.Queue, 2)

	// The initial snapshot is not a "change".
	assert.False(t, w.ConsumeChangeFlag())
}

func TestWatcher_UnchangedFileKeepsSnapshot(t *testing.T) {
	t.Parallel()

	w, _, _ := startTestWatcher(t, `
batch_size: [8, 16]
epochs: 5
`)

	snap := w.Snapshot()

	// Several poll cycles over an untouched file.
	time.Sleep(5 * testInterval)

	assert.Same(t, snap, w.Snapshot())
	assert.False(t, w.ConsumeChangeFlag())
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	t.Parallel()

	w, path, logDir := startTestWatcher(t, `
batch_size: [8, 16]
epochs: 5
`)

	writeConfigFile(t, path, logDir, `
batch_size: [8, 16]
epochs: [5, 10, 20]
`)
	touch(t, path, time.Second)

	require.Eventually(t, func() bool {
		return w.Snapshot().Version == 2
	}, 2*time.Second, testInterval)

	snap := w.Snapshot()
	assert.Len(t, snap.Queue, 6)

	// The flag reads true exactly once per publication.
	assert.True(t, w.ConsumeChangeFlag())
	assert.False(t, w.ConsumeChangeFlag())
}

func TestWatcher_ReloadFailureKeepsLastGood(t *testing.T) {
	t.Parallel()

	w, path, logDir := startTestWatcher(t, `
batch_size: [8, 16]
epochs: 5
`)

	snap := w.Snapshot()

	// A broken edit must not disturb consumers.
	require.NoError(t, os.WriteFile(path, []byte(`: : :`), 0o600))
	touch(t, path, time.Second)

	time.Sleep(5 * testInterval)

	assert.Same(t, snap, w.Snapshot())
	assert.False(t, w.ConsumeChangeFlag())

	// Fixing the file recovers on the next timestamp change.
	writeConfigFile(t, path, logDir, `
batch_size: 8
epochs: 5
`)
	touch(t, path, 2*time.Second)

	require.Eventually(t, func() bool {
		return w.Snapshot().Version == 2
	}, 2*time.Second, testInterval)

	assert.Len(t, w.Snapshot().Queue, 1)
	assert.True(t, w.ConsumeChangeFlag())
}

func TestWatcher_StartReconcilesHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	path := filepath.Join(dir, "sweep.yaml")
	writeConfigFile(t, path, logDir, `
batch_size: [8, 16]
epochs: 5
`)

	require.NoError(t, os.MkdirAll(logDir, 0o750))

	record := fmt.Sprintf(
		"data_name,data_dir,log_dir,batch_size,epochs,train_prefix,test_prefix,valid_prefix\n"+
			"mnist,/data,%s,8,5,mnist.train,mnist.test,mnist.valid\n",
		logDir,
	)
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "run_data.csv"), []byte(record), 0o600))

	w := watch.New(path, watch.FileLoader(path), watch.WithInterval(testInterval))
	require.NoError(t, w.Start())
	t.Cleanup(func() {
		w.Stop()
		<-w.Done()
	})

	snap := w.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, int64(16), snap.Queue[0]["batch_size"])
}

func TestWatcher_StartErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "absent.yaml")

		w := watch.New(path, watch.FileLoader(path), watch.WithInterval(testInterval))
		require.Error(t, w.Start())
	})

	t.Run("invalid document", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "sweep.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`epochs: 5`), 0o600))

		w := watch.New(path, watch.FileLoader(path), watch.WithInterval(testInterval))
		require.Error(t, w.Start())
	})

	t.Run("already started", func(t *testing.T) {
		t.Parallel()

		w, _, _ := startTestWatcher(t, `
batch_size: 8
epochs: 5
`)

		require.ErrorIs(t, w.Start(), watch.ErrAlreadyStarted)
	})
}

func TestWatcher_Stop(t *testing.T) {
	t.Parallel()

	w, _, _ := newTestWatcher(t, `
batch_size: 8
epochs: 5
`)
	require.NoError(t, w.Start())

	w.Stop()
	w.Stop() // Idempotent.

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not shut down")
	}

	// Stopped is terminal.
	require.ErrorIs(t, w.Start(), watch.ErrStopped)

	// The last snapshot remains readable.
	assert.NotNil(t, w.Snapshot())
}

func TestWatcher_Notify(t *testing.T) {
	t.Parallel()

	// A poll interval much longer than the test's patience, with notifications
	// enabled: the reload should land early, woken by the filesystem event.
	w, path, logDir := startTestWatcher(t, `
batch_size: [8, 16]
epochs: 5
`, watch.WithInterval(2*time.Second), watch.WithNotify())

	writeConfigFile(t, path, logDir, `
batch_size: [8, 16, 32]
epochs: 5
`)
	touch(t, path, time.Second)

	require.Eventually(t, func() bool {
		return w.Snapshot().Version == 2
	}, 5*time.Second, testInterval)

	assert.Len(t, w.Snapshot().Queue, 3)
}
