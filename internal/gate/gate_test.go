package gate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestSingleWriterExcludesReaders(t *testing.T) {
	g := New("t", nil, testLogger())

	require.NoError(t, g.AcquireWrite())
	require.Equal(t, Writing, g.Status())

	done := make(chan struct{})
	go func() {
		require.NoError(t, g.AcquireRead())
		g.ReleaseRead()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("reader admitted while writer held the gate")
	case <-time.After(50 * time.Millisecond):
	}

	g.ReleaseWrite()
	<-done
	require.Equal(t, Ready, g.Status())
}

func TestMultipleReadersConcurrent(t *testing.T) {
	g := New("t", nil, testLogger())

	require.NoError(t, g.AcquireRead())
	require.NoError(t, g.AcquireRead())
	require.Equal(t, Reading, g.Status())

	g.ReleaseRead()
	require.Equal(t, Reading, g.Status(), "one reader remains")

	g.ReleaseRead()
	require.Equal(t, Ready, g.Status())
}

func TestWriterPriorityOverLateReader(t *testing.T) {
	g := New("t", nil, testLogger())
	require.NoError(t, g.AcquireRead())

	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	writerReady := make(chan struct{})
	go func() {
		close(writerReady)
		require.NoError(t, g.AcquireWrite())
		record("writer")
		g.ReleaseWrite()
	}()
	<-writerReady
	time.Sleep(20 * time.Millisecond) // let the writer register as waiting

	readerDone := make(chan struct{})
	go func() {
		require.NoError(t, g.AcquireRead())
		record("late-reader")
		g.ReleaseRead()
		close(readerDone)
	}()
	time.Sleep(20 * time.Millisecond)

	g.ReleaseRead() // release the original reader; writer should go next
	<-readerDone

	require.Equal(t, []string{"writer", "late-reader"}, order)
}

func TestCloseWaitBlocksUntilIdle(t *testing.T) {
	g := New("t", nil, testLogger())
	require.NoError(t, g.AcquireRead())

	closed := make(chan struct{})
	go func() {
		g.CloseWait()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("CloseWait returned while a reader was still active")
	case <-time.After(30 * time.Millisecond):
	}

	g.ReleaseRead()
	<-closed
	require.Equal(t, Closing, g.Status())
}

func TestCloseWaitBlocksUntilPinConsumed(t *testing.T) {
	g := New("t", nil, testLogger())
	g.Pin()

	closed := make(chan struct{})
	go func() {
		g.CloseWait()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("CloseWait returned while a pinned handle hadn't gated yet")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, g.AcquireRead())
	g.ReleaseRead()
	<-closed
	require.Equal(t, Closing, g.Status())
}
