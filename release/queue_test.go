package release_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/alcove/release"
)

type fakeObject struct {
	name string
	log  *[]string
}

func (o fakeObject) Destroy() {
	*o.log = append(*o.log, o.name)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestFlushRunsInPushOrder(t *testing.T) {
	q := release.New(testLogger(), "frame", release.OrderFIFO)

	var calls []int
	for i := 0; i < 5; i++ {
		i := i
		q.Push(func() { calls = append(calls, i) })
	}
	require.Equal(t, 5, q.Len())

	q.Flush()
	require.Equal(t, []int{0, 1, 2, 3, 4}, calls)
	require.Equal(t, 0, q.Len())
}

func TestFlushTwiceRunsOnce(t *testing.T) {
	var q release.Queue
	q.Init(nil, "global", release.OrderFIFO)

	count := 0
	q.Push(func() { count++ })
	q.Push(func() { count++ })

	q.Flush()
	q.Flush()

	require.Equal(t, 2, count)
}

func TestZeroValueQueue(t *testing.T) {
	var q release.Queue

	ran := false
	q.Push(func() { ran = true })
	q.Flush()

	require.True(t, ran)
	require.Equal(t, release.OrderFIFO, q.Order())
}

func TestLIFOReleasesDependentsFirst(t *testing.T) {
	q := release.New(testLogger(), "global", release.OrderLIFO)

	// dependency edges: view -> image, image -> memory, framebuffer -> view
	dependsOn := map[string][]string{
		"view":        {"image"},
		"image":       {"memory"},
		"framebuffer": {"view"},
	}

	var released []string
	// Objects are registered as they are created, which is dependency order
	for _, name := range []string{"memory", "image", "view", "framebuffer"} {
		q.PushDestroyer(fakeObject{name: name, log: &released})
	}
	q.Flush()

	position := make(map[string]int, len(released))
	for i, name := range released {
		position[name] = i
	}

	for dependent, dependencies := range dependsOn {
		for _, dependency := range dependencies {
			require.Less(t, position[dependent], position[dependency],
				"%s was released before its dependent %s", dependency, dependent)
		}
	}
}

func TestFlushInOrderOverridesOnce(t *testing.T) {
	q := release.New(testLogger(), "frame", release.OrderFIFO)

	var released []string
	for _, name := range []string{"image", "view"} {
		q.PushDestroyer(fakeObject{name: name, log: &released})
	}
	q.FlushInOrder(release.OrderLIFO)
	require.Equal(t, []string{"view", "image"}, released)
	require.Equal(t, 0, q.Len())
	require.Equal(t, release.OrderFIFO, q.Order())

	released = nil
	for _, name := range []string{"image", "view"} {
		q.PushDestroyer(fakeObject{name: name, log: &released})
	}
	q.Flush()
	require.Equal(t, []string{"image", "view"}, released)
}

func TestPushDestroyerCapturesValue(t *testing.T) {
	q := release.New(nil, "frame", release.OrderFIFO)

	var released []string
	obj := fakeObject{name: "first", log: &released}
	q.PushDestroyer(obj)
	obj.name = "second"

	q.Flush()
	require.Equal(t, []string{"first"}, released)
}

func TestPushDuringFlushPanics(t *testing.T) {
	q := release.New(nil, "frame", release.OrderFIFO)
	q.Push(func() {
		q.Push(func() {})
	})

	require.Panics(t, q.Flush)
}

func TestPushNilPanics(t *testing.T) {
	q := release.New(nil, "frame", release.OrderFIFO)
	require.Panics(t, func() { q.Push(nil) })
}

func TestPanickingActionDoesNotRerun(t *testing.T) {
	q := release.New(nil, "frame", release.OrderFIFO)

	count := 0
	q.Push(func() { count++ })
	q.Push(func() { panic("boom") })

	require.Panics(t, q.Flush)
	q.Flush()

	require.Equal(t, 1, count)
	require.Equal(t, 0, q.Len())
}
