package scope

import (
	"strings"
	"sync"
	"testing"
)

func TestOwnerBasic(t *testing.T) {
	owner := NewOwner(nil)

	if owner.ID() == 0 {
		t.Error("owner should have non-zero ID")
	}
	if owner.Parent() != nil {
		t.Error("root owner should have nil parent")
	}
	if owner.IsDisposed() {
		t.Error("new owner should not be disposed")
	}
}

func TestOwnerHierarchy(t *testing.T) {
	root := NewOwner(nil)
	child1 := NewOwner(root)
	child2 := NewOwner(root)
	grandchild := NewOwner(child1)

	if child1.Parent() != root || child2.Parent() != root {
		t.Error("children parent should be root")
	}
	if grandchild.Parent() != child1 {
		t.Error("grandchild parent should be child1")
	}
	if got := len(root.Children()); got != 2 {
		t.Errorf("root has %d children, want 2", got)
	}
}

func TestOwnerDisposeHierarchy(t *testing.T) {
	root := NewOwner(nil)
	child1 := NewOwner(root)
	child2 := NewOwner(root)
	grandchild := NewOwner(child1)

	var order []string
	var mu sync.Mutex
	add := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	grandchild.OnCleanup(add("grandchild"))
	child1.OnCleanup(add("child1"))
	child2.OnCleanup(add("child2"))
	root.OnCleanup(add("root"))

	root.Dispose()

	for _, o := range []*Owner{root, child1, child2, grandchild} {
		if !o.IsDisposed() {
			t.Errorf("owner %d should be disposed", o.ID())
		}
	}
	want := []string{"child2", "grandchild", "child1", "root"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("disposal order = %v, want %v", order, want)
	}
}

func TestOwnerDisposeRemovesFromParent(t *testing.T) {
	root := NewOwner(nil)
	child := NewOwner(root)
	child.Dispose()
	child.Dispose()

	if len(root.Children()) != 0 {
		t.Error("disposed child should be removed from parent")
	}
	if root.IsDisposed() {
		t.Error("parent must survive child disposal")
	}
}

func TestOwnerCleanupOrder(t *testing.T) {
	owner := NewOwner(nil)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		owner.OnCleanup(func() { order = append(order, i) })
	}
	owner.Dispose()
	if len(order) != 3 || order[0] != 2 || order[2] != 0 {
		t.Errorf("cleanup order = %v, want [2 1 0]", order)
	}

	ran := false
	owner.OnCleanup(func() { ran = true })
	if !ran {
		t.Error("cleanup on disposed owner should run immediately")
	}
}

func TestOwnerValues(t *testing.T) {
	type key struct{}
	root := NewOwner(nil)
	mid := NewOwner(root)
	leaf := NewOwner(mid)
	other := NewOwner(nil)

	root.SetValue(key{}, "root")
	if got := leaf.GetValue(key{}); got != "root" {
		t.Errorf("leaf sees %v, want root", got)
	}

	mid.SetValue(key{}, "mid")
	if got := leaf.GetValue(key{}); got != "mid" {
		t.Errorf("leaf sees %v, want mid (nearest)", got)
	}
	if got := root.GetValue(key{}); got != "root" {
		t.Errorf("root sees %v, want root", got)
	}

	if _, ok := other.LookupValue(key{}); ok {
		t.Error("unrelated tree must not see the value")
	}
}

func TestOwnerInvalidate(t *testing.T) {
	calls := 0
	root := NewOwner(nil, WithInvalidate(func() { calls++ }))
	child := NewOwner(root)

	child.Invalidate()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	child.Dispose()
	child.Invalidate()
	if calls != 1 {
		t.Error("disposed owner must not invalidate")
	}

	NewOwner(nil).Invalidate()
}

func TestOwnerCommit(t *testing.T) {
	owner := NewOwner(nil)
	var order []string

	owner.StartRender()
	if !owner.Rendering() {
		t.Fatal("Rendering should be true during render")
	}
	owner.OnCommit(func() { order = append(order, "a") })
	owner.OnCommit(func() { order = append(order, "b") })
	if len(order) != 0 {
		t.Fatal("commit callbacks must wait for EndRender")
	}
	owner.EndRender()

	if strings.Join(order, "") != "ab" {
		t.Errorf("order = %v, want [a b]", order)
	}
	if owner.RenderCount() != 1 {
		t.Errorf("RenderCount = %d, want 1", owner.RenderCount())
	}

	owner.StartRender()
	owner.EndRender()
	if len(order) != 2 {
		t.Error("commits must not repeat across renders")
	}

	owner.OnCommit(func() { order = append(order, "now") })
	if len(order) != 3 {
		t.Error("OnCommit outside a render should run immediately")
	}
}

func TestHookSlots(t *testing.T) {
	owner := NewOwner(nil)
	render := func() (*int, *string) {
		owner.StartRender()
		defer owner.EndRender()

		var n *int
		if slot := owner.UseHookSlot(HookValue); slot != nil {
			n = slot.(*int)
		} else {
			n = new(int)
			owner.SetHookSlot(HookValue, n)
		}
		var s *string
		if slot := owner.UseHookSlot(HookImmediate); slot != nil {
			s = slot.(*string)
		} else {
			s = new(string)
			owner.SetHookSlot(HookImmediate, s)
		}
		return n, s
	}

	n1, s1 := render()
	n2, s2 := render()
	if n1 != n2 || s1 != s2 {
		t.Error("hook slots must keep identity across renders")
	}
	if owner.HookCount() != 2 {
		t.Errorf("HookCount = %d, want 2", owner.HookCount())
	}
	if kind, v := owner.HookSlot(1); kind != HookImmediate || v != s1 {
		t.Errorf("HookSlot(1) = %v %v", kind, v)
	}
	if kind, v := owner.HookSlot(2); kind != 0 || v != nil {
		t.Errorf("HookSlot(2) = %v %v, want empty", kind, v)
	}
}

func TestHookOrderChanged(t *testing.T) {
	owner := NewOwner(nil)
	owner.StartRender()
	owner.UseHookSlot(HookImmediate)
	owner.SetHookSlot(HookImmediate, "x")
	owner.EndRender()

	t.Run("different type", func(t *testing.T) {
		defer func() {
			r := recover()
			if r == nil || !strings.Contains(r.(string), "hook order changed") {
				t.Errorf("recover = %v", r)
			}
		}()
		owner.StartRender()
		owner.UseHookSlot(HookDeferred)
	})

	t.Run("fewer hooks", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		owner.StartRender()
		owner.EndRender()
	})
}
