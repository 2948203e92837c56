package analyser

import (
	"errors"
	"testing"
)

func TestFlagged(t *testing.T) {
	if Flagged(0.85, 0.85) {
		t.Fatal("score equal to threshold should pass")
	}
	if !Flagged(0.851, 0.85) {
		t.Fatal("score above threshold should flag")
	}
	if Flagged(0, 0.85) {
		t.Fatal("zero score should pass")
	}
}

func TestVerdictErr(t *testing.T) {
	if err := verdictErr(false); err != nil {
		t.Fatalf("clean verdict should be nil, got %v", err)
	}
	err := verdictErr(true)
	if !errors.Is(err, ErrUnsafeContent) {
		t.Fatalf("flagged verdict should be ErrUnsafeContent, got %v", err)
	}
}
