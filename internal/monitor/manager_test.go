package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wisefido-vision/internal/classifier"
	"wisefido-vision/internal/models"
	"wisefido-vision/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T, mediaRoot string) *Manager {
	cfg := testMonitorConfig()
	cfg.Monitor.MediaRoot = mediaRoot
	cfg.Monitor.FrameDelay = time.Millisecond

	logger := zap.NewNop()
	return NewManager(cfg,
		&fakeDetector{byIndex: map[int64][]models.Detection{}},
		classifier.NewClassifier(cfg, logger),
		&fakeReasoner{},
		store.NewHistory(cfg.Monitor.HistoryLimit),
		&fakeSink{},
		logger,
	)
}

func writeFrameDir(t *testing.T, mediaRoot, name string) {
	dir := filepath.Join(mediaRoot, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_0001.jpg"), []byte("frame"), 0o644))
}

func TestManager_AddSource(t *testing.T) {
	mediaRoot := t.TempDir()
	writeFrameDir(t, mediaRoot, "fall_clip")

	mgr := newTestManager(t, mediaRoot)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		mgr.Wait()
	}()

	err := mgr.AddSource(ctx, "fall_incident", "fall_clip", "fall")

	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Count())
	assert.True(t, mgr.Has("fall_incident"))
	assert.False(t, mgr.Has("other"))
}

func TestManager_AddSource_Duplicate(t *testing.T) {
	mediaRoot := t.TempDir()
	writeFrameDir(t, mediaRoot, "fall_clip")

	mgr := newTestManager(t, mediaRoot)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		mgr.Wait()
	}()

	require.NoError(t, mgr.AddSource(ctx, "fall_incident", "fall_clip", "fall"))

	err := mgr.AddSource(ctx, "fall_incident", "fall_clip", "fall")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source already registered")
	assert.Equal(t, 1, mgr.Count())
}

func TestManager_AddSource_Validation(t *testing.T) {
	mgr := newTestManager(t, t.TempDir())
	ctx := context.Background()

	err := mgr.AddSource(ctx, "", "clip", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source_id is required")

	err = mgr.AddSource(ctx, "cam-1", "", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "video_path is required")

	err = mgr.AddSource(ctx, "cam-1", "missing_clip", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "video source not found")

	assert.Equal(t, 0, mgr.Count())
}

func TestManager_AddSource_InvalidProfile(t *testing.T) {
	mediaRoot := t.TempDir()
	writeFrameDir(t, mediaRoot, "clip")

	mgr := newTestManager(t, mediaRoot)

	err := mgr.AddSource(context.Background(), "cam-1", "clip", "bogus")

	assert.Error(t, err)
	assert.Equal(t, 0, mgr.Count())
}

func TestManager_AddSource_InferredProfile(t *testing.T) {
	mediaRoot := t.TempDir()
	writeFrameDir(t, mediaRoot, "clip")

	mgr := newTestManager(t, mediaRoot)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		mgr.Wait()
	}()

	// profile 省略时按 source_id 推断
	require.NoError(t, mgr.AddSource(ctx, "heart-attack-ward", "clip", ""))

	mgr.mu.RLock()
	sm := mgr.sources["heart-attack-ward"]
	mgr.mu.RUnlock()

	require.NotNil(t, sm)
	assert.Equal(t, models.ProfileCardiac, sm.profile)
}

func TestManager_WaitStopsAllLoops(t *testing.T) {
	mediaRoot := t.TempDir()
	writeFrameDir(t, mediaRoot, "clip_a")
	writeFrameDir(t, mediaRoot, "clip_b")

	mgr := newTestManager(t, mediaRoot)

	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, mgr.AddSource(ctx, "cam-a", "clip_a", "general"))
	require.NoError(t, mgr.AddSource(ctx, "cam-b", "clip_b", "general"))
	require.Equal(t, 2, mgr.Count())

	cancel()

	done := make(chan struct{})
	go func() {
		mgr.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor loops did not stop after context cancel")
	}
}
