package engine

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
)

func TestSingleInstance(t *testing.T) {
	require.NoError(t, claim())
	defer unclaim()

	err := claim()
	require.True(t, errors.Is(err, ErrAlreadyRunning))

	// New refuses before touching the loader or the window
	_, err = New(slog.Default(), nil, Options{})
	require.True(t, errors.Is(err, ErrAlreadyRunning))

	unclaim()
	require.NoError(t, claim())
}

type fakeWindow struct {
	// states holds the minimized flag for each poll; the window closes when it runs out
	states []bool
	polls  int
}

func (w *fakeWindow) RequiredInstanceExtensions() []string { return nil }
func (w *fakeWindow) CreateSurface(core1_0.Instance) (khr_surface.Surface, error) {
	return nil, errors.New("no surface")
}
func (w *fakeWindow) Extent() (int, int) { return 640, 480 }
func (w *fakeWindow) ShouldClose() bool  { return w.polls >= len(w.states) }
func (w *fakeWindow) PollEvents()        { w.polls++ }
func (w *fakeWindow) Minimized() bool    { return w.states[w.polls-1] }

func TestRunLoopPausesWhileMinimized(t *testing.T) {
	window := &fakeWindow{states: []bool{false, true, true, false}}

	draws := 0
	err := runLoop(window, time.Millisecond, func() error {
		draws++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 4, window.polls)
	require.Equal(t, 2, draws)
}

func TestRunLoopStopsOnDrawFailure(t *testing.T) {
	window := &fakeWindow{states: []bool{false, false, false}}

	drawErr := errors.New("device lost")
	draws := 0
	err := runLoop(window, time.Millisecond, func() error {
		draws++
		return drawErr
	})
	require.True(t, errors.Is(err, drawErr))
	require.Equal(t, 1, draws)
}

func TestMissingNames(t *testing.T) {
	available := map[string]int{
		"VK_KHR_surface":     1,
		"VK_EXT_debug_utils": 1,
	}

	require.Equal(t, []string{"VK_KHR_win32_surface", "VK_KHR_xcb_surface"}, MissingNames(available, []string{
		"VK_KHR_xcb_surface",
		"VK_KHR_surface",
		"VK_KHR_win32_surface",
		"VK_KHR_xcb_surface",
	}))
	require.Empty(t, MissingNames(available, []string{"VK_KHR_surface"}))
	require.Empty(t, MissingNames(available, nil))
}

func TestReportMissingLogsWarnings(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buffer, nil))

	missing := reportMissing(logger, "validation layer", map[string]struct{}{}, []string{"VK_LAYER_KHRONOS_validation"})
	require.Equal(t, []string{"VK_LAYER_KHRONOS_validation"}, missing)
	require.Contains(t, buffer.String(), "level=WARN")
	require.Contains(t, buffer.String(), "unavailable validation layer")

	buffer.Reset()
	require.Nil(t, reportMissing(logger, "validation layer", map[string]struct{}{"VK_LAYER_KHRONOS_validation": {}}, []string{"VK_LAYER_KHRONOS_validation"}))
	require.Empty(t, buffer.String())
}
