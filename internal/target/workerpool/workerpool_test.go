package workerpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapPreservesInputOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1, 0, 9, 8, 7, 6}
	out := Map(context.Background(), items, 4, func(_ context.Context, n int) int {
		return n * n
	})
	want := make([]int, len(items))
	for i, n := range items {
		want[i] = n * n
	}
	assert.Equal(t, want, out)
}

func TestMapHandlesEmptyInput(t *testing.T) {
	out := Map(context.Background(), []int{}, 4, func(_ context.Context, n int) int { return n })
	assert.Empty(t, out)
}

func TestMapDefaultsWorkerCountWhenNonPositive(t *testing.T) {
	items := []int{1, 2, 3}
	out := Map(context.Background(), items, 0, func(_ context.Context, n int) int { return n + 1 })
	assert.Equal(t, []int{2, 3, 4}, out)
}

func TestMapReturnsFullLengthResultsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items := []int{1, 2, 3, 4, 5}
	out := Map(ctx, items, 1, func(_ context.Context, n int) int { return n })
	assert.Len(t, out, len(items))
}
