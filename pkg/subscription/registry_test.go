package subscription

import (
	"errors"
	"sync"
	"testing"
)

func TestSubscribeIdempotent(t *testing.T) {
	r := NewRegistry()

	first, created, err := r.Subscribe("Vehicle.Speed", Local(0))
	if err != nil || !created {
		t.Fatalf("Subscribe() = %v, %v, %v", first, created, err)
	}
	again, created, err := r.Subscribe("Vehicle.Speed", Local(0))
	if err != nil || created {
		t.Fatalf("second Subscribe() created = %v, err = %v", created, err)
	}
	if again.ID != first.ID {
		t.Errorf("second Subscribe() ID = %d, want %d", again.ID, first.ID)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}

	if _, _, err := r.Subscribe("", Local(0)); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Subscribe(empty) error = %v, want ErrInvalidPath", err)
	}
}

func TestUnsubscribeAbsent(t *testing.T) {
	r := NewRegistry()
	if r.Unsubscribe("Vehicle", Remote("p1")) {
		t.Error("Unsubscribe(absent) = true, want false")
	}

	r.Subscribe("Vehicle", Remote("p1"))
	if !r.Unsubscribe("Vehicle", Remote("p1")) {
		t.Error("Unsubscribe(present) = false, want true")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestCoveringAncestors(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("Vehicle.Cabin", Remote("p1"))
	r.Subscribe("Vehicle", Remote("p2"))
	r.Subscribe("Vehicle.Cabin.Door.IsOpen", Remote("p1"))
	r.Subscribe("Vehicle.Cabin.Door.IsOpen", Local(0))
	r.Subscribe("Vehicle.Speed", Remote("p3"))
	r.Subscribe("Vehicle.Cab", Remote("p4"))

	got := r.Covering("Vehicle.Cabin.Door.IsOpen")
	want := []Subscriber{Remote("p2"), Remote("p1"), Local(0)}
	if len(got) != len(want) {
		t.Fatalf("Covering() = %v, want subscribers %v", got, want)
	}
	for i := range want {
		if got[i].Subscriber != want[i] {
			t.Errorf("Covering()[%d] = %v, want %v", i, got[i].Subscriber, want[i])
		}
	}
	if got[1].Path != "Vehicle.Cabin" {
		t.Errorf("p1 covered by %s, want outermost Vehicle.Cabin", got[1].Path)
	}

	if got := r.Covering("Other.Signal"); len(got) != 0 {
		t.Errorf("Covering(unrelated) = %v, want none", got)
	}
}

func TestCoveringLaterDescendant(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("Vehicle.Body", Local(0))

	// No tree involved: any path below the branch is covered.
	if got := r.Covering("Vehicle.Body.Lights.Fog.IsOn"); len(got) != 1 {
		t.Errorf("Covering(new descendant) = %v, want one entry", got)
	}
}

func TestDropPeerAndPrune(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("A", Remote("p1"))
	r.Subscribe("A.B", Remote("p1"))
	r.Subscribe("A.B", Remote("p2"))
	r.Subscribe("A.C", Local(0))

	if n := r.DropPeer("p1"); n != 2 {
		t.Errorf("DropPeer(p1) = %d, want 2", n)
	}
	if n := r.DropPeer(""); n != 0 {
		t.Errorf("DropPeer(empty) = %d, want 0", n)
	}
	if got := r.Paths(Remote("p2")); len(got) != 1 || got[0] != "A.B" {
		t.Errorf("Paths(p2) = %v, want [A.B]", got)
	}

	r.Subscribe("A.C", Remote("p2"))
	n := r.Prune(func(p string) bool { return p != "A.C" })
	if n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if got := r.LocalPaths(); len(got) != 0 {
		t.Errorf("LocalPaths() = %v, want none", got)
	}
	if got := r.Paths(Remote("p2")); len(got) != 2 || got[1] != "A.C" {
		t.Errorf("Paths(p2) = %v, want [A.B A.C]: remote interests survive Prune", got)
	}
}

func TestCancelAndGet(t *testing.T) {
	r := NewRegistry()
	s, _, _ := r.Subscribe("A", Local(7))

	if got, err := r.Get(s.ID); err != nil || got.Path != "A" {
		t.Errorf("Get() = %v, %v", got, err)
	}
	if _, err := r.Cancel(s.ID); err != nil {
		t.Errorf("Cancel() error = %v", err)
	}
	if _, err := r.Cancel(s.ID); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Cancel() error = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestResourceLimit(t *testing.T) {
	r := NewRegistryWithConfig(Config{MaxSubscriptions: 2})
	r.Subscribe("A", Local(0))
	r.Subscribe("B", Local(0))
	if _, _, err := r.Subscribe("C", Local(0)); !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("Subscribe() over limit error = %v, want ErrResourceExhausted", err)
	}
	// Existing pairs are still returned at the limit.
	if _, _, err := r.Subscribe("A", Local(0)); err != nil {
		t.Errorf("Subscribe(existing) at limit error = %v", err)
	}
}

func TestLocalPathsOrder(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("B", Local(1))
	r.Subscribe("A", Local(2))
	r.Subscribe("B", Local(3))
	r.Subscribe("C", Remote("p"))

	got := r.LocalPaths()
	if len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Errorf("LocalPaths() = %v, want [B A]", got)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sub := Local(uint64(n))
			for j := 0; j < 100; j++ {
				r.Subscribe("Vehicle", sub)
				r.Covering("Vehicle.Speed")
				r.Unsubscribe("Vehicle", sub)
			}
		}(i)
	}
	wg.Wait()
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestHasLocalAndCounts(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("Vehicle", Local(0))
	r.Subscribe("Vehicle", Remote("peer-a"))
	r.Subscribe("Vehicle.Speed", Remote("peer-a"))

	if !r.HasLocal("Vehicle") {
		t.Error("HasLocal(Vehicle) = false, want true")
	}
	if r.HasLocal("Vehicle.Speed") {
		t.Error("HasLocal(Vehicle.Speed) = true, want false; coverage is not ownership")
	}
	if local, remote := r.Counts(); local != 1 || remote != 2 {
		t.Errorf("Counts() = %d, %d, want 1, 2", local, remote)
	}
}
