package scope

import "fmt"

// HookType identifies the kind of hook occupying a slot.
type HookType uint8

const (
	HookImmediate HookType = iota + 1
	HookSynchronized
	HookDeferred
	HookValue
)

// String returns a human-readable name for the hook type.
func (h HookType) String() string {
	switch h {
	case HookImmediate:
		return "Immediate"
	case HookSynchronized:
		return "Synchronized"
	case HookDeferred:
		return "Deferred"
	case HookValue:
		return "Value"
	default:
		return "Unknown"
	}
}

// UseHookSlot returns the value stored in the current hook slot and
// advances to the next one. It returns nil on the first render, after
// which the caller stores the instance with SetHookSlot:
//
//	slot := owner.UseHookSlot(scope.HookValue)
//	if slot != nil {
//	    return slot.(*T)
//	}
//	instance := &T{}
//	owner.SetHookSlot(scope.HookValue, instance)
//	return instance
//
// A slot filled by a different hook type panics.
func (o *Owner) UseHookSlot(kind HookType) any {
	idx := o.hookSlotIdx
	o.hookSlotIdx++

	if idx < len(o.hookSlots) {
		slot := o.hookSlots[idx]
		if slot.kind != kind {
			panic(fmt.Sprintf("scope: hook order changed at index %d: expected %s, got %s",
				idx, slot.kind, kind))
		}
		return slot.value
	}
	return nil
}

// SetHookSlot stores value in the slot UseHookSlot just returned nil for.
func (o *Owner) SetHookSlot(kind HookType, value any) {
	if o.hookSlotIdx != len(o.hookSlots)+1 {
		panic(fmt.Sprintf("scope: SetHookSlot at index %d without a matching UseHookSlot", len(o.hookSlots)))
	}
	o.hookSlots = append(o.hookSlots, hookSlot{kind: kind, value: value})
}

// HookCount returns the number of filled hook slots.
func (o *Owner) HookCount() int {
	return len(o.hookSlots)
}

// HookSlot returns the kind and value of the i-th filled slot, or zero
// values when i is out of range.
func (o *Owner) HookSlot(i int) (HookType, any) {
	if i < 0 || i >= len(o.hookSlots) {
		return 0, nil
	}
	s := o.hookSlots[i]
	return s.kind, s.value
}
