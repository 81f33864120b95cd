package runstate

import (
	"context"
	"testing"
	"time"
)

func TestNew_StartsRunning(t *testing.T) {
	s := New(context.Background())

	if !s.Running() {
		t.Error("Running() = false for a fresh state, want true")
	}
	select {
	case <-s.Done():
		t.Error("Done() closed before Interrupt()")
	default:
	}
}

func TestState_HaltOnce(t *testing.T) {
	s := New(context.Background())

	if !s.Halt() {
		t.Error("first Halt() = false, want true")
	}
	if s.Running() {
		t.Error("Running() = true after Halt(), want false")
	}
	if s.Halt() {
		t.Error("second Halt() = true, want false (terminal transition)")
	}
	if s.Running() {
		t.Error("Running() flipped back after second Halt()")
	}
}

func TestState_Interrupt(t *testing.T) {
	s := New(context.Background())

	s.Interrupt()
	s.Interrupt() // safe to repeat

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Interrupt()")
	}
	if s.Context().Err() == nil {
		t.Error("Context().Err() = nil after Interrupt()")
	}
}

func TestState_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := New(parent)

	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after parent cancellation")
	}
	// The flag is independent of the context: halting remains explicit.
	if !s.Running() {
		t.Error("Running() = false after parent cancellation, want true until Halt()")
	}
}
