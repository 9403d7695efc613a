package covmark

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/covmark/covmark/internal/registry"
)

// fakeT captures guard failures so tests can assert on the failure paths
// without failing themselves. Production code treats Fatalf as not
// returning, so every use here checks state immediately after the call that
// should have failed.
type fakeT struct {
	failed bool
	msg    string
}

func (f *fakeT) Helper() {}

func (f *fakeT) Fatalf(format string, args ...any) {
	f.failed = true
	f.msg = fmt.Sprintf(format, args...)
}

// TestCheck_Hit verifies the happy path: a mark hit inside the checked block
// satisfies Check.
func TestCheck_Hit(t *testing.T) {
	Check(t, "check_hit", func() {
		Hit("check_hit")
	})
}

// TestCheck_NotHit verifies that Check fails when the block never hits the
// mark, and that the failure names the mark, the expectation, and the
// observed count.
func TestCheck_NotHit(t *testing.T) {
	ft := &fakeT{}
	Check(ft, "check_not_hit", func() {})

	if !ft.failed {
		t.Fatal("Check() did not fail for unhit mark")
	}
	for _, want := range []string{`"check_not_hit"`, "0 hit(s)", "at least 1 hit"} {
		if !strings.Contains(ft.msg, want) {
			t.Errorf("failure message %q does not contain %q", ft.msg, want)
		}
	}
}

// TestCheckNever verifies both outcomes of the exactly-zero-hits form.
func TestCheckNever(t *testing.T) {
	CheckNever(t, "never_hit", func() {
		Hit("some_other_mark")
	})

	ft := &fakeT{}
	CheckNever(ft, "never_hit", func() {
		Hit("never_hit")
	})
	if !ft.failed {
		t.Fatal("CheckNever() did not fail for hit mark")
	}
	if !strings.Contains(ft.msg, "no hits") {
		t.Errorf("failure message %q does not mention expectation %q", ft.msg, "no hits")
	}
}

// TestCheckCount verifies that exact-count-k passes on k hits and that
// exact-count-(k+1) fails, reporting the observed count.
func TestCheckCount(t *testing.T) {
	const k = 3
	CheckCount(t, "counted", k, func() {
		for i := 0; i < k; i++ {
			Hit("counted")
		}
	})

	ft := &fakeT{}
	CheckCount(ft, "counted", k+1, func() {
		for i := 0; i < k; i++ {
			Hit("counted")
		}
	})
	if !ft.failed {
		t.Fatal("CheckCount(k+1) did not fail on k hits")
	}
	for _, want := range []string{fmt.Sprintf("got %d hit(s)", k), fmt.Sprintf("exactly %d hit(s)", k+1)} {
		if !strings.Contains(ft.msg, want) {
			t.Errorf("failure message %q does not contain %q", ft.msg, want)
		}
	}
}

// TestCheckCount_Zero verifies that exact-count-0 behaves like CheckNever.
func TestCheckCount_Zero(t *testing.T) {
	CheckCount(t, "count_zero", 0, func() {})
}

// TestNoLeakBetweenGuards verifies that a closed guard leaves nothing
// behind: a new guard for the same mark observes a count of 0 at entry.
func TestNoLeakBetweenGuards(t *testing.T) {
	Check(t, "reused", func() {
		Hit("reused")
		Hit("reused")
	})

	g := Open(t, "reused", Never())
	if got := registry.Count("reused"); got != 0 {
		t.Errorf("Count() = %d at guard entry, want 0", got)
	}
	g.Close()
}

// TestNestedGuards verifies that guards for distinct marks nest and are each
// verified against their own counter.
func TestNestedGuards(t *testing.T) {
	Check(t, "outer", func() {
		CheckCount(t, "inner", 2, func() {
			Hit("inner")
			Hit("outer")
			Hit("inner")
		})
	})
}

// TestDoubleArm verifies that a second guard for a mark already under an
// open guard on the same goroutine fails at open time, before any hit is
// recorded under it, and leaves the first guard intact.
func TestDoubleArm(t *testing.T) {
	g := Open(t, "dup", AtLeastOnce())

	ft := &fakeT{}
	inner := Open(ft, "dup", AtLeastOnce())
	if !ft.failed {
		t.Fatal("Open() did not fail for double-armed mark")
	}
	if !strings.Contains(ft.msg, "open guard") {
		t.Errorf("failure message %q does not describe the double arm", ft.msg)
	}
	inner.Close() // inert, must not disturb the real guard

	Hit("dup")
	g.Close()
}

// TestIsolation verifies that hits on one goroutine are invisible to a guard
// open on another for the same mark.
func TestIsolation(t *testing.T) {
	CheckNever(t, "isolated", func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				Hit("isolated")
			}
		}()
		wg.Wait()
	})
}

// TestIsolation_ParallelChecks verifies that concurrent guards for the same
// mark on different goroutines each see only their own hits.
func TestIsolation_ParallelChecks(t *testing.T) {
	fts := make([]*fakeT, 4)
	var wg sync.WaitGroup
	for i := range fts {
		fts[i] = &fakeT{}
		wg.Add(1)
		go func(ft *fakeT, hits int) {
			defer wg.Done()
			CheckCount(ft, "parallel", hits, func() {
				for j := 0; j < hits; j++ {
					Hit("parallel")
				}
			})
		}(fts[i], i+1)
	}
	wg.Wait()

	for i, ft := range fts {
		if ft.failed {
			t.Errorf("goroutine %d check failed: %s", i, ft.msg)
		}
	}
}

// TestPanicCleanup verifies that a panic inside the checked block still
// tears the guard down: the mark can be re-armed immediately on the same
// goroutine and observes a count of 0.
func TestPanicCleanup(t *testing.T) {
	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic did not propagate out of Check")
			}
		}()
		Check(t, "panicky", func() {
			Hit("panicky")
			panic("boom")
		})
	}()

	// Unhit would fail AtLeastOnce; an expectation failure here would mean
	// the panicked guard leaked its count or its armed entry.
	CheckNever(t, "panicky", func() {})
}

// TestGoexitCleanup verifies that a guard is torn down when the checked
// block exits via runtime.Goexit, the unwind path taken by t.Fatalf.
func TestGoexitCleanup(t *testing.T) {
	before := registry.OpenGuards()
	done := make(chan struct{})
	go func() {
		defer close(done)
		runChecked(&fakeT{}, "goexit", AtLeastOnce(), func() {
			runtime.Goexit()
		})
	}()
	<-done

	if got := registry.OpenGuards(); got != before {
		t.Errorf("OpenGuards() = %d after Goexit, want %d", got, before)
	}
}

// TestGuard_CloseTwice verifies that closing a guard twice is a no-op.
func TestGuard_CloseTwice(t *testing.T) {
	g := Open(t, "twice", AtLeastOnce())
	Hit("twice")
	g.Close()
	g.Close()
}

// TestGuard_NilClose verifies that a nil guard is safe to close, so callers
// can defer unconditionally.
func TestGuard_NilClose(t *testing.T) {
	var g *Guard
	g.Close()
}

// TestDisabled verifies that with the library disabled, Hit records nothing
// and guards are inert, so checks pass vacuously.
func TestDisabled(t *testing.T) {
	loadSettings()
	enabledSetting = false
	defer func() { enabledSetting = true }()

	Hit("disabled_mark")
	Check(t, "disabled_mark", func() {})
	CheckCount(t, "disabled_mark", 7, func() {})
}

// TestHit_NoOpenGuard verifies that a hit with no open guard anywhere is
// simply dropped and cannot satisfy a later check.
func TestHit_NoOpenGuard(t *testing.T) {
	Hit("stray")

	ft := &fakeT{}
	Check(ft, "stray", func() {})
	if !ft.failed {
		t.Error("Check() passed on a hit recorded before the guard opened")
	}
}
