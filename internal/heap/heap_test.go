package heap

import (
	"testing"

	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// fakeRoots traces exactly the objects it is told to, standing in for the
// interpreter's TraceRoots during a collection.
type fakeRoots struct {
	live []value.HeapObject
}

func (r *fakeRoots) TraceRoots(v value.Visitor) {
	for _, obj := range r.live {
		v.VisitObject(obj)
	}
}

func TestCollectSweepsUnreachable(t *testing.T) {
	h := New()
	roots := &fakeRoots{}
	h.SetRootWalker(roots)

	kept := NewObject(h, &value.Array{})
	NewObject(h, &value.Array{}) // never rooted, should be swept

	roots.live = []value.HeapObject{kept}
	h.Collect()

	if got, want := h.Live(), 1; got != want {
		t.Errorf("Live() after collect = %d, want %d", got, want)
	}
}

func TestCollectMarksTransitively(t *testing.T) {
	h := New()
	roots := &fakeRoots{}
	h.SetRootWalker(roots)

	inner := NewObject(h, &value.Array{})
	outer := NewObject(h, &value.Array{Elements: []value.Value{value.Obj(inner)}})

	roots.live = []value.HeapObject{outer}
	h.Collect()

	if got, want := h.Live(), 2; got != want {
		t.Errorf("Live() after collect = %d, want %d (outer + inner reached through it)", got, want)
	}
}

func TestSuppressGCBlocksThresholdCollection(t *testing.T) {
	h := New()
	roots := &fakeRoots{}
	h.SetRootWalker(roots)
	h.threshold = 1

	release := h.SuppressGC()
	defer release()

	NewObject(h, &value.Array{})
	NewObject(h, &value.Array{})

	if got, want := h.Live(), 2; got != want {
		t.Errorf("Live() while suppressed = %d, want %d (no collection should have run)", got, want)
	}
}

func TestSuppressGCNestable(t *testing.T) {
	h := New()
	h.SetRootWalker(&fakeRoots{})

	release1 := h.SuppressGC()
	release2 := h.SuppressGC()
	if !h.Suppressed() {
		t.Fatal("expected Suppressed() to be true with two outstanding releases")
	}
	release1()
	if !h.Suppressed() {
		t.Error("expected Suppressed() to remain true with one outstanding release")
	}
	release2()
	if h.Suppressed() {
		t.Error("expected Suppressed() to be false once every release has run")
	}
}

func TestNoRootWalkerResetsAllocationCount(t *testing.T) {
	h := New()
	NewObject(h, &value.Array{})
	h.Collect()
	if got, want := h.Live(), 1; got != want {
		t.Errorf("Live() without a root walker = %d, want %d (nothing should be swept)", got, want)
	}
	if h.allocated != 0 {
		t.Errorf("allocated after Collect without a root walker = %d, want 0", h.allocated)
	}
}
