package testutil

import (
	"errors"
	"math"
	"os"
	"runtime"
	"testing"
)

// recordingT captures helper failures so the failure paths can be asserted
// without failing the real test.
type recordingT struct {
	testing.TB
	failed bool
}

func (r *recordingT) Helper() {}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.failed = true
}

func (r *recordingT) Fatalf(format string, args ...interface{}) {
	r.failed = true
	runtime.Goexit()
}

func (r *recordingT) Fatal(args ...interface{}) {
	r.failed = true
	runtime.Goexit()
}

// record runs fn against a fresh recordingT on its own goroutine, so Fatal
// stops fn the way it stops a real test, and reports whether fn failed.
func record(fn func(t testing.TB)) bool {
	r := &recordingT{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(r)
	}()
	<-done
	return r.failed
}

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	// Verify nil error doesn't cause issues
	AssertNoError(t, nil)
}

func TestAssertNoError_FailurePath(t *testing.T) {
	t.Parallel()

	if !record(func(t testing.TB) { AssertNoError(t, errors.New("boom")) }) {
		t.Fatal("expected a failure when error is non-nil")
	}
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	// Verify non-nil error is handled correctly
	AssertError(t, errors.New("test error"))
}

func TestAssertError_FailurePath(t *testing.T) {
	t.Parallel()

	if !record(func(t testing.TB) { AssertError(t, nil) }) {
		t.Fatal("expected a failure when error is nil")
	}
}

func TestNearEqual(t *testing.T) {
	t.Parallel()

	if !NearEqual(1.0, 1.0+1e-13, 1e-12) {
		t.Error("values within tolerance should compare equal")
	}
	if NearEqual(1.0, 1.1, 1e-12) {
		t.Error("values outside tolerance should compare unequal")
	}
	if !NearEqual(math.NaN(), math.NaN(), 0) {
		t.Error("two NaNs should compare equal")
	}
	if NearEqual(math.NaN(), 1.0, 1e6) {
		t.Error("NaN should not match a finite value at any tolerance")
	}
}

func TestAssertFloats(t *testing.T) {
	t.Parallel()

	AssertFloats(t, []float64{1, math.NaN(), 3}, []float64{1, math.NaN(), 3}, 1e-12)
}

func TestAssertFloats_FailurePath(t *testing.T) {
	t.Parallel()

	// The length mismatch must stop the helper before the element loop.
	if !record(func(t testing.TB) { AssertFloats(t, []float64{1}, []float64{1, 2}, 0) }) {
		t.Fatal("expected a failure on length mismatch")
	}
	if !record(func(t testing.TB) { AssertFloats(t, []float64{1}, []float64{2}, 1e-12) }) {
		t.Fatal("expected a failure on value mismatch")
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := WriteFile(t, dir, "fixture.csv", "a,b\n1,2\n")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back fixture: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("content = %q, want %q", data, "a,b\n1,2\n")
	}
}
