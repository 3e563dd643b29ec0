package approval

import (
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRegistry(t *testing.T) {
	t.Run("resolve delivers the decision exactly once", func(t *testing.T) {
		r := NewRegistry(discardLogger(), time.Minute, time.Minute)

		decision := r.WaitForApproval("run-1")

		if !r.ResolveApproval("run-1", true) {
			t.Fatal("first resolve should report success")
		}
		if r.ResolveApproval("run-1", false) {
			t.Error("second resolve should report nothing pending")
		}

		select {
		case approved := <-decision:
			if !approved {
				t.Error("expected approval, got rejection")
			}
		case <-time.After(time.Second):
			t.Fatal("decision channel never delivered")
		}
	})

	t.Run("rejection flows through", func(t *testing.T) {
		r := NewRegistry(discardLogger(), time.Minute, time.Minute)

		decision := r.WaitForApproval("run-1")
		r.ResolveApproval("run-1", false)

		if approved := <-decision; approved {
			t.Error("expected rejection, got approval")
		}
	})

	t.Run("has pending tracks registry state", func(t *testing.T) {
		r := NewRegistry(discardLogger(), time.Minute, time.Minute)

		if r.HasPending("run-1") {
			t.Error("nothing registered yet, HasPending should be false")
		}
		_ = r.WaitForApproval("run-1")
		if !r.HasPending("run-1") {
			t.Error("HasPending should be true after WaitForApproval")
		}
		r.ResolveApproval("run-1", true)
		if r.HasPending("run-1") {
			t.Error("HasPending should be false after resolution")
		}
	})

	t.Run("second wait replaces and rejects the first", func(t *testing.T) {
		r := NewRegistry(discardLogger(), time.Minute, time.Minute)

		first := r.WaitForApproval("run-1")
		second := r.WaitForApproval("run-1")

		if approved := <-first; approved {
			t.Error("replaced wait should be rejected")
		}

		r.ResolveApproval("run-1", true)
		if approved := <-second; !approved {
			t.Error("current wait should receive the real decision")
		}
	})

	t.Run("ttl sweep auto-rejects", func(t *testing.T) {
		r := NewRegistry(discardLogger(), 10*time.Millisecond, 5*time.Millisecond)

		decision := r.WaitForApproval("run-1")

		select {
		case approved := <-decision:
			if approved {
				t.Error("expired approval should be a rejection")
			}
		case <-time.After(time.Second):
			t.Fatal("ttl sweep never rejected the pending decision")
		}
	})

	t.Run("shutdown rejects everything pending", func(t *testing.T) {
		r := NewRegistry(discardLogger(), time.Minute, time.Minute)

		first := r.WaitForApproval("run-1")
		second := r.WaitForApproval("run-2")

		if err := r.Shutdown(t.Context()); err != nil {
			t.Fatalf("unexpected shutdown error: %v", err)
		}

		if approved := <-first; approved {
			t.Error("run-1 should be rejected on shutdown")
		}
		if approved := <-second; approved {
			t.Error("run-2 should be rejected on shutdown")
		}
	})
}
