package utils

import (
	"math"
	"testing"
	"time"
)

func TestSafeDiv(t *testing.T) {
	if got := SafeDiv(10, 4); got != 2.5 {
		t.Fatalf("got %v", got)
	}
	if got := SafeDiv(1, 0); got != 0 {
		t.Fatalf("zero denominator: got %v", got)
	}
	if got := SafeDiv(math.NaN(), 1); got != 0 {
		t.Fatalf("nan numerator: got %v", got)
	}
	if got := SafeDiv(1, math.Inf(1)); got != 0 {
		t.Fatalf("inf denominator: got %v", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(1.5, 0, 1); got != 1 {
		t.Fatalf("got %v", got)
	}
	if got := Clamp(-0.5, 0, 1); got != 0 {
		t.Fatalf("got %v", got)
	}
	if got := Clamp(0.5, 0, 1); got != 0.5 {
		t.Fatalf("got %v", got)
	}
}

func TestScaleDuration(t *testing.T) {
	if got := ScaleDuration(time.Hour, 1.5); got != 90*time.Minute {
		t.Fatalf("got %s", got)
	}
	if got := ScaleDuration(time.Hour, 0); got != 0 {
		t.Fatalf("got %s", got)
	}
}

func TestDurationSecondsRoundTrip(t *testing.T) {
	if got := DurationSeconds(25.2); got != 25200*time.Millisecond {
		t.Fatalf("got %s", got)
	}
}
