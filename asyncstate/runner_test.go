package asyncstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunner_Lifecycle(t *testing.T) {
	r := NewRunner[string]()

	var mu sync.Mutex
	var transitions []State[string]
	stop := r.OnChange(func(s State[string]) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	})
	defer stop()

	err := r.Run(context.Background(), func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})
	require.NoError(t, err)

	state := r.Snapshot()
	require.False(t, state.IsLoading())
	require.Empty(t, state.Error())
	require.Equal(t, []string{"a", "b"}, state.All())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, transitions, 2)
	require.True(t, transitions[0].Loading, "first transition is the pending state")
	require.False(t, transitions[1].Loading, "second transition is the settle")
	require.Equal(t, []string{"a", "b"}, transitions[1].Items)
}

func TestRunner_ErrorSettle(t *testing.T) {
	r := NewRunner[int]()
	boom := errors.New("backend down")

	err := r.Run(context.Background(), func(ctx context.Context) ([]int, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	state := r.Snapshot()
	require.False(t, state.IsLoading())
	require.Equal(t, "backend down", state.Error())
	require.Empty(t, state.All())
}

func TestRunner_EmptyErrorMessageFallsBack(t *testing.T) {
	r := NewRunner[int]()

	_ = r.Run(context.Background(), func(ctx context.Context) ([]int, error) {
		return nil, errors.New("")
	})

	require.Equal(t, DefaultErrorMessage, r.Snapshot().Error())
}

func TestRunner_ErrorClearedOnNextRun(t *testing.T) {
	r := NewRunner[int]()

	_ = r.Run(context.Background(), func(ctx context.Context) ([]int, error) {
		return nil, errors.New("first attempt failed")
	})
	require.NotEmpty(t, r.Snapshot().Error())

	started := make(chan struct{})
	settle := make(chan struct{})
	go func() {
		_ = r.Run(context.Background(), func(ctx context.Context) ([]int, error) {
			close(started)
			<-settle
			return []int{1}, nil
		})
	}()

	<-started
	state := r.Snapshot()
	require.True(t, state.IsLoading())
	require.Empty(t, state.Error(), "a new attempt clears the previous error")

	close(settle)
	require.Eventually(t, func() bool {
		return !r.Snapshot().IsLoading()
	}, 2*time.Second, 5*time.Millisecond, "run never settled")
	require.Equal(t, []int{1}, r.Snapshot().All())
}

func TestRunner_SuccessReplacesItemsWholesale(t *testing.T) {
	r := NewRunner[int]()

	_ = r.Run(context.Background(), func(ctx context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	_ = r.Run(context.Background(), func(ctx context.Context) ([]int, error) {
		return []int{9}, nil
	})

	require.Equal(t, []int{9}, r.Snapshot().All())
}

// runRace starts invocation A, then invocation B, lets B settle first, and
// then lets A settle. It returns the final items.
func runRace(t *testing.T, r *Runner[string]) []string {
	t.Helper()

	aStarted := make(chan struct{})
	aSettle := make(chan struct{})
	aDone := make(chan struct{})
	go func() {
		defer close(aDone)
		_ = r.Run(context.Background(), func(ctx context.Context) ([]string, error) {
			close(aStarted)
			<-aSettle
			return []string{"from A"}, nil
		})
	}()
	<-aStarted

	require.NoError(t, r.Run(context.Background(), func(ctx context.Context) ([]string, error) {
		return []string{"from B"}, nil
	}))

	close(aSettle)
	<-aDone

	return r.Snapshot().All()
}

func TestRunner_GuardedMostRecentStartWins(t *testing.T) {
	r := NewRunner[string]()

	// B started after A, so B's result must survive even though A settled
	// last.
	require.Equal(t, []string{"from B"}, runRace(t, r))
}

func TestRunner_UnguardedLastSettleWins(t *testing.T) {
	r := NewRunner[string](WithoutGenerationGuard())

	// Without the guard the historical race is back: A settled last, so A
	// wins.
	require.Equal(t, []string{"from A"}, runRace(t, r))
}

func TestState_Where(t *testing.T) {
	s := State[int]{Items: []int{1, 2, 3, 4}}

	even := s.Where(func(n int) bool { return n%2 == 0 })
	require.Equal(t, []int{2, 4}, even)
	require.Nil(t, s.Where(func(n int) bool { return n > 10 }))
	require.Equal(t, []int{1, 2, 3, 4}, s.All(), "projections do not modify the state")
}

func TestRunner_OnChangeUnregister(t *testing.T) {
	r := NewRunner[int]()

	var calls int
	stop := r.OnChange(func(State[int]) { calls++ })

	_ = r.Run(context.Background(), func(ctx context.Context) ([]int, error) { return nil, nil })
	require.Equal(t, 2, calls)

	stop()
	_ = r.Run(context.Background(), func(ctx context.Context) ([]int, error) { return nil, nil })
	require.Equal(t, 2, calls, "unregistered callbacks must not fire")
}
