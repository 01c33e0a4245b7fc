package arbor_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyLibrary copies the sample library into a temporary directory.
func copyLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS("examples/library")))
	return dir
}

const extraTree = `title: Home
version: 1.0.0
participant_modules: [gantry]
tree:
  name: home_all
  sequence:
    children:
      - name: home
`

func TestLoad_Example(t *testing.T) {
	lib, err := arbor.Load(context.Background(), "examples/library")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"get_tip", "aspirate_sample", "dispense_sample", "discard_tip"}, lib.TreeNames())
	_, err = lib.WorkflowByTitle("Transfer sample")
	assert.NoError(t, err)
}

func TestEngine_RunTree(t *testing.T) {
	exec := memory.NewExecutor(map[string]domain.Outcome{"is_tip_attached": domain.Failure("no tip")})
	eng, err := arbor.New("examples/library", exec)
	require.NoError(t, err)

	out, err := eng.RunTree(context.Background(), "get_tip")
	require.NoError(t, err)
	assert.True(t, out.IsSuccess(), out.String())
	assert.Equal(t, []string{"is_tip_attached", "move_to_tip_rack", "press_tip", "is_tip_attached", "report_tip_error"}, exec.Names())

	_, err = eng.RunTree(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrTreeNotFound)
}

func TestEngine_RunWorkflow(t *testing.T) {
	eng, err := arbor.New("examples/library", memory.NewExecutor(nil))
	require.NoError(t, err)

	report, err := eng.RunWorkflow(context.Background(), "Transfer sample")
	require.NoError(t, err)
	assert.True(t, report.Outcome.IsSuccess())
	assert.Len(t, report.Steps, 4)
}

func TestNew_InvalidLibrary(t *testing.T) {
	_, err := arbor.New(t.TempDir(), memory.NewExecutor(nil))
	assert.ErrorIs(t, err, domain.ErrMissingLibraryFile)

	_, err = arbor.New("", memory.NewExecutor(nil))
	assert.Error(t, err)
}

func TestEngine_Reload(t *testing.T) {
	dir := copyLibrary(t)
	eng, err := arbor.New(dir, memory.NewExecutor(nil))
	require.NoError(t, err)
	before := eng.Library()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "trees", "home_all.yaml"), []byte(extraTree), 0o644))
	require.NoError(t, eng.Reload(context.Background()))
	assert.NotSame(t, before, eng.Library())
	_, err = eng.Library().TreeByName("home_all")
	assert.NoError(t, err)

	// A broken library is rejected and the previous one kept.
	valid := eng.Library()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trees", "broken.yaml"), []byte("title: [\n"), 0o644))
	assert.Error(t, eng.Reload(context.Background()))
	assert.Same(t, valid, eng.Library())
}

func TestEngine_WithFS(t *testing.T) {
	fsys := fstest.MapFS{}
	for _, name := range []string{"modules.yaml", "tools.yaml", "nodes.yaml", "trees/discard_tip.json"} {
		data, err := os.ReadFile(filepath.Join("examples/library", name))
		require.NoError(t, err)
		fsys[name] = &fstest.MapFile{Data: data}
	}

	eng, err := arbor.New("", memory.NewExecutor(nil), arbor.WithFS(fsys))
	require.NoError(t, err)
	assert.Equal(t, []string{"discard_tip"}, eng.Library().TreeNames())

	_, err = eng.Watch(context.Background())
	assert.ErrorIs(t, err, arbor.ErrWatchUnsupported)
}

func TestEngine_Watch(t *testing.T) {
	dir := copyLibrary(t)
	eng, err := arbor.New(dir, memory.NewExecutor(nil), arbor.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := eng.Watch(ctx)
	require.NoError(t, err)

	next := func() string {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("no watch event")
			return ""
		}
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "trees", "home_all.yaml"), []byte(extraTree), 0o644))
	assert.Equal(t, arbor.EventReload, next())
	_, err = eng.Library().TreeByName("home_all")
	assert.NoError(t, err)

	valid := eng.Library()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trees", "home_all.yaml"), []byte("tree: {name: }\n"), 0o644))
	assert.Contains(t, next(), arbor.EventError)
	assert.Same(t, valid, eng.Library())

	cancel()
	for range events {
	}
}

// syncBuffer is a bytes.Buffer safe for the engine's concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) count(s string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), s)
}

func TestEngine_WatchSharesOneWatcher(t *testing.T) {
	dir := copyLibrary(t)
	logs := &syncBuffer{}
	eng, err := arbor.New(dir, memory.NewExecutor(nil),
		arbor.WithDebounce(100*time.Millisecond),
		arbor.WithLogger(logging.NewWithWriter(logs, slog.LevelInfo, false)),
	)
	require.NoError(t, err)
	require.Equal(t, 1, logs.count("library loaded"))

	first, err := eng.Watch(context.Background())
	require.NoError(t, err)
	secondCtx, cancelSecond := context.WithCancel(context.Background())
	defer cancelSecond()
	second, err := eng.Watch(secondCtx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "trees", "home_all.yaml"), []byte(extraTree), 0o644))

	for _, events := range []<-chan string{first, second} {
		select {
		case ev := <-events:
			assert.Equal(t, arbor.EventReload, ev)
		case <-time.After(5 * time.Second):
			t.Fatal("no watch event")
		}
	}
	// Both subscribers were served by a single reload.
	assert.Equal(t, 2, logs.count("library loaded"))

	// Leaving does not stop the watcher for the others.
	cancelSecond()
	for range second {
	}
	require.NoError(t, os.Remove(filepath.Join(dir, "trees", "home_all.yaml")))
	select {
	case ev := <-first:
		assert.Equal(t, arbor.EventReload, ev)
	case <-time.After(5 * time.Second):
		t.Fatal("no watch event")
	}
	assert.Equal(t, 3, logs.count("library loaded"))

	// Close ends every subscription.
	require.NoError(t, eng.Close())
	_, open := <-first
	assert.False(t, open)
}
