package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingWriterTailOrdersOldestFirstBeforeWrap(t *testing.T) {
	r := NewRingWriter(5)
	for i := 0; i < 3; i++ {
		_, err := r.Write([]byte(fmt.Sprintf("line-%d\n", i)))
		require.NoError(t, err)
	}
	require.Equal(t, []string{"line-0", "line-1", "line-2"}, r.Tail(0))
}

func TestRingWriterWrapsAndDropsOldest(t *testing.T) {
	r := NewRingWriter(3)
	for i := 0; i < 5; i++ {
		_, err := r.Write([]byte(fmt.Sprintf("line-%d\n", i)))
		require.NoError(t, err)
	}
	require.Equal(t, []string{"line-2", "line-3", "line-4"}, r.Tail(0))
}

func TestRingWriterTailRespectsLimit(t *testing.T) {
	r := NewRingWriter(10)
	for i := 0; i < 6; i++ {
		_, err := r.Write([]byte(fmt.Sprintf("line-%d\n", i)))
		require.NoError(t, err)
	}
	require.Equal(t, []string{"line-4", "line-5"}, r.Tail(2))
}

func TestRingWriterLimitGreaterThanSizeReturnsAll(t *testing.T) {
	r := NewRingWriter(10)
	_, err := r.Write([]byte("only\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"only"}, r.Tail(100))
}
