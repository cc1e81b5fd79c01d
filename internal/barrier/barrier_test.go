package barrier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/muster/internal/types"
	"github.com/stretchr/testify/require"
)

// shortWait returns a context that expires after a brief deadline. Arrive
// blocks until its barrier releases or aborts, so tests pass this context for
// an arrival that must be recorded without completing the barrier; the
// arrival stays recorded after the deadline passes.
func shortWait(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestArriveWaitingThenReleased(t *testing.T) {
	reg := New()
	ctx := context.Background()

	type result struct {
		out Outcome
		err error
	}
	results := make(chan result, 3)

	var wg sync.WaitGroup
	for i, worker := range []string{"w0", "w1", "w2"} {
		wg.Add(1)
		go func(i int, worker string) {
			defer wg.Done()
			out, err := reg.Arrive(ctx, "epoch_0", worker, 3)
			results <- result{out, err}
		}(i, worker)
		if i < 2 {
			// Give earlier arrivals a head start so ordering is deterministic
			// enough to exercise Waiting before the releasing arrival lands.
			time.Sleep(10 * time.Millisecond)
		}
	}
	wg.Wait()
	close(results)

	var released int
	for r := range results {
		require.NoError(t, r.err)
		require.Equal(t, uint64(0), r.out.Generation)
		if r.out.Kind == Released {
			released++
		} else {
			require.Equal(t, Waiting, r.out.Kind)
		}
	}
	require.Equal(t, 3, released, "the releaser and both woken waiters observe Released")
}

func TestArriveNextGenerationAfterRelease(t *testing.T) {
	reg := New()
	ctx := context.Background()

	_, err := reg.Arrive(shortWait(t), "b", "w0", 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	_, err = reg.Arrive(ctx, "b", "w1", 2)
	require.NoError(t, err)

	out, err := reg.Arrive(shortWait(t), "b", "w0", 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, uint64(1), out.Generation)
}

func TestArriveMismatchedRequiredTotal(t *testing.T) {
	reg := New()
	ctx := context.Background()

	_, err := reg.Arrive(shortWait(t), "b", "w0", 3)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = reg.Arrive(ctx, "b", "w1", 4)
	require.Error(t, err)
}

func TestArriveIdempotentForSameWorker(t *testing.T) {
	reg := New()
	ctx := context.Background()

	out1, err := reg.Arrive(shortWait(t), "b", "w0", 3)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	out2, err := reg.Arrive(ctx, "b", "w0", 3)
	require.NoError(t, err)

	require.Equal(t, out1.Kind, out2.Kind)
	require.Equal(t, 1, out2.Arrived, "re-arriving must not double count")
}

func TestAbortReleasesWaitersWithReason(t *testing.T) {
	reg := New()
	ctx := context.Background()

	done := make(chan Outcome, 1)
	go func() {
		out, _ := reg.Arrive(ctx, "ckpt_sync", "w0", 3)
		done <- out
	}()
	time.Sleep(20 * time.Millisecond)
	_, err := reg.Arrive(shortWait(t), "ckpt_sync", "w1", 3)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, reg.Abort("ckpt_sync", "operator requested"))

	out := <-done
	require.Equal(t, Aborted, out.Kind)
	require.Equal(t, "operator requested", out.Reason)
}

// TestFailedParticipantAbortsBarrier mirrors scenario 4: three workers enter
// a four-party barrier; one is reported failed while still gathering; the
// remaining waiters observe Aborted(ParticipantFailed).
func TestFailedParticipantAbortsBarrier(t *testing.T) {
	reg := New()
	ctx := context.Background()

	results := make(chan Outcome, 2)
	for _, w := range []string{"w1", "w2"} {
		go func(worker string) {
			out, _ := reg.Arrive(ctx, "ckpt_sync", worker, 4)
			results <- out
		}(w)
	}
	time.Sleep(20 * time.Millisecond)

	_, err := reg.Arrive(shortWait(t), "ckpt_sync", "w0", 4)
	require.ErrorIs(t, err, context.DeadlineExceeded) // w0's own arrival is not the releaser; it's recorded then w0 fails

	reg.NotifyWorkerFailed("w0")

	for i := 0; i < 2; i++ {
		out := <-results
		require.Equal(t, Aborted, out.Kind)
		require.Equal(t, ParticipantFailed, out.Reason)
	}
}

func TestNotifyWorkerFailedIgnoresUnrelatedBarrier(t *testing.T) {
	reg := New()

	_, err := reg.Arrive(shortWait(t), "b", "w0", 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	reg.NotifyWorkerFailed("someone-else")

	snap, ok := reg.Snapshot("b")
	require.True(t, ok)
	require.NotEqual(t, "aborted", string(snap.Status))
}

func TestCancelLeavesArrivalRecordedAndBarrierCanStillRelease(t *testing.T) {
	reg := New()

	cancelCtx, cancel := context.WithCancel(context.Background())
	waitDone := make(chan struct{})
	go func() {
		_, err := reg.Arrive(cancelCtx, "b", "w0", 3)
		require.Error(t, err)
		close(waitDone)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-waitDone

	snap, ok := reg.Snapshot("b")
	require.True(t, ok)
	require.Equal(t, 1, snap.Arrived, "w0's arrival remains recorded after its wait is canceled")

	_, err := reg.Arrive(shortWait(t), "b", "w1", 3)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	out, err := reg.Arrive(context.Background(), "b", "w2", 3)
	require.NoError(t, err)
	require.Equal(t, Released, out.Kind, "the barrier still releases even though w0 stopped waiting")
}

func TestReopenAfterAbortAllowsNewRequiredTotal(t *testing.T) {
	reg := New()
	ctx := context.Background()

	results := make(chan Outcome, 2)
	for _, w := range []string{"w1", "w2"} {
		go func(worker string) {
			out, _ := reg.Arrive(ctx, "ckpt_sync", worker, 4)
			results <- out
		}(w)
	}
	time.Sleep(20 * time.Millisecond)
	_, err := reg.Arrive(shortWait(t), "ckpt_sync", "w0", 4)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	reg.NotifyWorkerFailed("w0")
	for i := 0; i < 2; i++ {
		out := <-results
		require.Equal(t, Aborted, out.Kind)
	}

	// Before reopening, arrivals at either the old or a new required_total
	// are stuck: the old total still matches but the barrier stays Aborted,
	// and a new total is rejected as a mismatch before the abort is even
	// reached.
	out, err := reg.Arrive(ctx, "ckpt_sync", "w1", 4)
	require.NoError(t, err)
	require.Equal(t, Aborted, out.Kind)
	_, err = reg.Arrive(ctx, "ckpt_sync", "w1", 2)
	require.Error(t, err)

	require.NoError(t, reg.Reopen("ckpt_sync", 2))

	snap, ok := reg.Snapshot("ckpt_sync")
	require.True(t, ok)
	require.Equal(t, types.BarrierGathering, snap.Status)
	require.Equal(t, 2, snap.RequiredTotal)
	require.Equal(t, 0, snap.Arrived)

	out1, err := reg.Arrive(shortWait(t), "ckpt_sync", "w1", 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, Waiting, out1.Kind)
	out2, err := reg.Arrive(ctx, "ckpt_sync", "w2", 2)
	require.NoError(t, err)
	require.Equal(t, Released, out2.Kind)
}

func TestReopenRejectsNonAbortedBarrier(t *testing.T) {
	reg := New()

	_, err := reg.Arrive(shortWait(t), "b", "w0", 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Error(t, reg.Reopen("b", 3))
}

func TestReopenRejectsUnknownBarrier(t *testing.T) {
	reg := New()
	require.Error(t, reg.Reopen("ghost", 3))
}

func TestListReturnsAllBarriers(t *testing.T) {
	reg := New()
	_, err := reg.Arrive(shortWait(t), "a", "w0", 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	_, err = reg.Arrive(shortWait(t), "b", "w0", 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Len(t, reg.List(), 2)
}
