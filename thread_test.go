package threadpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOSThreads_SpawnAndJoin(t *testing.T) {
	release := make(chan struct{})
	ran := make(chan struct{})

	th, err := OSThreads().Spawn("test-0", func() {
		close(ran)
		<-release
	})
	require.NoError(t, err)
	require.NotZero(t, th.ID())
	<-ran

	require.False(t, waitTimeout(50*time.Millisecond, th.Join), "Join returned before entry finished")
	close(release)
	require.True(t, waitTimeout(time.Second, th.Join))
	// joining again returns immediately
	require.True(t, waitTimeout(time.Second, th.Join))
}

func TestOSThreads_DistinctThreads(t *testing.T) {
	const n = 4
	release := make(chan struct{})
	ids := make(map[int]bool)
	var threads []Thread
	for i := 0; i < n; i++ {
		th, err := OSThreads().Spawn("distinct", func() { <-release })
		require.NoError(t, err)
		ids[th.ID()] = true
		threads = append(threads, th)
	}
	close(release)
	for _, th := range threads {
		th.Join()
	}
	require.Len(t, ids, n)
}

func TestOSThreads_LongNameIsTruncated(t *testing.T) {
	th, err := OSThreads().Spawn("a-rather-long-thread-name-0", func() {})
	require.NoError(t, err)
	th.Join()
}

func TestOSThreads_InvalidName(t *testing.T) {
	entered := false
	th, err := OSThreads().Spawn("nul\x00", func() { entered = true })
	require.ErrorIs(t, err, ErrSpawnFailed)
	require.Nil(t, th)
	require.False(t, entered)
}

func TestSpawnerFunc(t *testing.T) {
	var got string
	s := SpawnerFunc(func(name string, entry func()) (Thread, error) {
		got = name
		return nil, errInjected
	})
	_, err := s.Spawn("x", func() {})
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, "x", got)
}
