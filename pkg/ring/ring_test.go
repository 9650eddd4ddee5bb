package ring_test

import (
	"testing"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/ring"
)

func TestBuffer_KeepsMostRecent(t *testing.T) {
	b := ring.New[int](3)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}

	got := b.Items()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Item %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	last, ok := b.Last()
	if !ok || last != 5 {
		t.Errorf("Expected last 5, got %d (ok=%v)", last, ok)
	}
}

func TestBuffer_PartiallyFilled(t *testing.T) {
	b := ring.New[string](4)
	b.Push("a")
	b.Push("b")

	if b.Len() != 2 || b.Cap() != 4 {
		t.Errorf("Expected len 2 cap 4, got len %d cap %d", b.Len(), b.Cap())
	}
	if items := b.Items(); items[0] != "a" || items[1] != "b" {
		t.Errorf("Unexpected order: %v", items)
	}
}

func TestBuffer_Empty(t *testing.T) {
	b := ring.New[int](0)
	if _, ok := b.Last(); ok {
		t.Error("Empty buffer should have no last item")
	}
	if b.Cap() != 1 {
		t.Errorf("Non-positive capacity should clamp to 1, got %d", b.Cap())
	}
}
