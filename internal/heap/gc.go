package heap

import "github.com/chazu/rasp/internal/value"

// Collect runs a mark-sweep pass over the heap, rooted at the supplied
// register window plus any additional roots (e.g. values still live on
// a caller's frame). Objects unreachable from the root set are freed and
// their ids returned to the free list.
//
// Unlike the teacher's vm.RegistryGC (github.com/chazu/maggie
// vm/registry_gc.go), which runs on a 30-second background goroutine
// against concurrency registries that have no single-threaded call
// sequence, this collector has no timer and no goroutine: the spec ties
// collection to a specific synchronous point (a function returning),
// so Collect is invoked inline by the engine rather than polled.
func (h *Heap) Collect(roots []value.Value) CollectStats {
	live := make([]bool, len(h.slots))

	var mark func(v value.Value)
	mark = func(v value.Value) {
		var id int32
		switch {
		case v.IsSequenceRef() || v.IsStringRef():
			id = v.HeapID()
		case v.IsValueRef():
			id = v.Locator().HeapID
		default:
			return
		}
		if id < 0 || int(id) >= len(h.slots) || !h.slots[id].occupied || live[id] {
			return
		}
		live[id] = true
		obj := h.slots[id].obj
		if obj.Kind == Sequence {
			for _, elem := range obj.Items {
				mark(elem)
			}
		}
	}

	for _, r := range roots {
		mark(r)
	}

	var stats CollectStats
	newScore := 0
	for id := range h.slots {
		if !h.slots[id].occupied {
			continue
		}
		if live[id] {
			newScore += h.slots[id].obj.MemoryScore()
			continue
		}
		h.slots[id] = slot{}
		h.freeList = append(h.freeList, int32(id))
		stats.Freed++
	}
	h.score = newScore
	stats.LiveScore = newScore
	return stats
}

// CollectStats summarizes a single Collect pass.
type CollectStats struct {
	Freed     int
	LiveScore int
}
