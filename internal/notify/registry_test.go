package notify

import (
	"testing"
	"time"
)

func TestNotifySuppressesDuplicates(t *testing.T) {
	r := NewRegistry(time.Minute, nil)

	if !r.Notify("Product.CannotDelete", StatusError, "Product has open orders") {
		t.Fatal("first notification must be accepted")
	}
	if r.Notify("Product.CannotDelete", StatusError, "Product has open orders") {
		t.Fatal("duplicate of an active notification must be suppressed")
	}
	if !r.Notify("Other.Code", StatusError, "different failure") {
		t.Fatal("different ID must be accepted")
	}

	if got := len(r.Active()); got != 2 {
		t.Errorf("active = %d, want 2", got)
	}
}

func TestNotifyAcceptsAfterExpiry(t *testing.T) {
	r := NewRegistry(time.Second, nil)
	current := time.Now()
	r.now = func() time.Time { return current }

	if !r.Notify("code", StatusError, "failure") {
		t.Fatal("first notification must be accepted")
	}

	current = current.Add(2 * time.Second)
	if !r.Notify("code", StatusError, "failure") {
		t.Fatal("notification must be accepted after the previous one expired")
	}
}

func TestActiveOrderAndDismiss(t *testing.T) {
	r := NewRegistry(time.Minute, nil)
	current := time.Now()
	r.now = func() time.Time { return current }

	r.Notify("first", StatusSuccess, "one")
	current = current.Add(time.Millisecond)
	r.Notify("second", StatusSuccess, "two")

	active := r.Active()
	if len(active) != 2 || active[0].ID != "first" || active[1].ID != "second" {
		t.Fatalf("active = %v", active)
	}

	r.Dismiss("first")
	active = r.Active()
	if len(active) != 1 || active[0].ID != "second" {
		t.Fatalf("after dismiss: %v", active)
	}
}
