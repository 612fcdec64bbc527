// Package heap implements the Meow mark-sweep collector: an allocation-
// counted heap of HeapObject, a metadata-map collector, and the GC
// suppression primitive the interpreter acquires around every instruction
// dispatch. Grounded on original_source/include/memory/{meow_object,
// memory_manager,mark_sweep_gc}.h and src/memory/mark_sweep_gc.cpp.
package heap

import "github.com/MeowNBK/meow-vm-legacy/internal/value"

const initialThreshold = 1024

// RootWalker is implemented by the interpreter: it knows every GC root
// (operand stack slots, cached modules, open upvalues, call-frame closures
// and modules, registered builtin methods/getters) and visits each of them
// through the given visitor during a collection.
// Mirrors MeowVM::traceRoots(GCVisitor&).
type RootWalker interface {
	TraceRoots(v value.Visitor)
}

type metadata struct {
	marked bool
}

// Heap owns every live HeapObject and collects the unreachable ones. The
// zero Heap is not usable; construct with New.
type Heap struct {
	objects       map[value.HeapObject]*metadata
	threshold     int
	allocated     int
	suppressDepth int
	roots         RootWalker
}

func New() *Heap {
	return &Heap{
		objects:   make(map[value.HeapObject]*metadata),
		threshold: initialThreshold,
	}
}

// SetRootWalker wires the interpreter in after both are constructed (the
// interpreter needs a *Heap to exist before it can exist itself).
func (h *Heap) SetRootWalker(w RootWalker) {
	h.roots = w
}

// NewObject registers obj with the heap, collecting first if the allocation
// threshold has been reached and GC is not suppressed. Mirrors
// MemoryManager::newObject<T>, minus the construction itself — Go callers
// construct the object with a normal composite literal and hand it here, since
// Go has no placement-new equivalent worth reproducing.
func NewObject[T value.HeapObject](h *Heap, obj T) T {
	if h.allocated >= h.threshold && h.suppressDepth == 0 {
		h.Collect()
	}
	h.objects[obj] = &metadata{}
	h.allocated++
	return obj
}

// SuppressGC disables collection until the returned closer is called.
// Nestable: collection resumes only once every acquired suppression has
// been released. Used around each instruction dispatch (so an instruction's
// own transient allocations can't be swept mid-instruction) and around any
// native call that re-enters the interpreter. Mirrors the disable/enable
// pair on MemoryManager plus meow_vm.h's GCScopeGuard.
func (h *Heap) SuppressGC() func() {
	h.suppressDepth++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		h.suppressDepth--
	}
}

// Suppressed reports whether a collection would currently be deferred.
func (h *Heap) Suppressed() bool {
	return h.suppressDepth > 0
}

// Collect runs one mark-sweep cycle: every object reachable from the root
// walker is marked (and unmarked again, ready for the next cycle); every
// unreached object is dropped from the heap. Threshold grows geometrically
// after each cycle; the exact growth policy is free to evolve as long as
// the liveness invariants still hold.
func (h *Heap) Collect() {
	if h.roots == nil {
		h.allocated = 0
		return
	}

	h.roots.TraceRoots(h)

	for obj, meta := range h.objects {
		if meta.marked {
			meta.marked = false
			continue
		}
		delete(h.objects, obj)
	}

	h.allocated = 0
	h.threshold *= 2
}

// VisitValue implements value.Visitor: it marks the value's underlying
// object, if it carries one.
func (h *Heap) VisitValue(v value.Value) {
	if obj, ok := v.HeapObj(); ok {
		h.mark(obj)
	}
}

// VisitObject implements value.Visitor.
func (h *Heap) VisitObject(obj value.HeapObject) {
	h.mark(obj)
}

// mark marks obj and recurses into its trace, unless already marked.
// Objects not present in the metadata map are silently ignored: this
// tolerates roots that reference values whose objects predate registration,
// matching the original's "unknown pointers are silently ignored" behavior.
func (h *Heap) mark(obj value.HeapObject) {
	if obj == nil {
		return
	}
	meta, ok := h.objects[obj]
	if !ok {
		return
	}
	if meta.marked {
		return
	}
	meta.marked = true
	obj.Trace(h)
}

// Live reports the number of objects currently tracked by the heap, for
// diagnostics and tests.
func (h *Heap) Live() int {
	return len(h.objects)
}
