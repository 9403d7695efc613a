// Package covmark provides coverage marks: named checkpoints instrumented
// into production code that tests can assert were reached.
//
// Production code records a hit when execution reaches a branch of interest:
//
//	func SafeDivide(dividend, divisor uint32) uint32 {
//		if divisor == 0 {
//			covmark.Hit("save_divide_zero")
//			return 0
//		}
//		return dividend / divisor
//	}
//
// A test then scopes a check over the code under test and fails unless the
// branch actually ran:
//
//	func TestSafeDivideByZero(t *testing.T) {
//		covmark.Check(t, "save_divide_zero", func() {
//			if got := SafeDivide(92, 0); got != 0 {
//				t.Errorf("SafeDivide() = %d, want 0", got)
//			}
//		})
//	}
//
// This closes the gap between "the assertion passed" and "the code path I
// meant to exercise actually ran": it verifies something does not happen for
// the right reason, lets you grep a mark name to jump between a branch and
// its test, and keeps code and tests from drifting apart during refactors.
//
// Hits are tracked per goroutine, so parallel tests never satisfy each
// other's checks. Mark names must be globally unique. Hit is a near-free
// no-op while no check is open anywhere in the process, and the whole
// library can be switched off for production binaries (COVMARK_DISABLE or
// covmark.yaml; see internal/config).
package covmark

import (
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/covmark/covmark/internal/config"
	"github.com/covmark/covmark/internal/registry"
	"github.com/covmark/covmark/internal/telemetry"
)

// TestingT is the subset of *testing.T the check guards report through.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

var (
	settingsOnce sync.Once

	enabledSetting bool
	strictSetting  bool
)

func loadSettings() {
	settingsOnce.Do(func() {
		cfg := config.Get()
		enabledSetting = cfg.Enabled
		strictSetting = cfg.StrictMarks
	})
}

// Hit records that execution reached the named mark, on the calling
// goroutine only. It never fails and is safe to call from any code path,
// under an open check or not; hits nobody is checking for are dropped or
// ignored.
func Hit(mark string) {
	loadSettings()
	if !enabledSetting {
		return
	}
	registry.RecordHit(mark)
	telemetry.CountHit(mark)
	telemetry.TraceHit(mark)
}

// Check runs fn and fails the test unless the mark was hit at least once on
// the calling goroutine during fn.
func Check(t TestingT, mark string, fn func()) {
	t.Helper()
	runChecked(t, mark, AtLeastOnce(), fn)
}

// CheckNever runs fn and fails the test if the mark was hit on the calling
// goroutine during fn.
func CheckNever(t TestingT, mark string, fn func()) {
	t.Helper()
	runChecked(t, mark, Never(), fn)
}

// CheckCount runs fn and fails the test unless the mark was hit exactly n
// times on the calling goroutine during fn.
func CheckCount(t TestingT, mark string, n int, fn func()) {
	t.Helper()
	runChecked(t, mark, Exactly(n), fn)
}

// runChecked scopes a guard over fn. The guard is torn down on every exit
// path: normal return, panic, and runtime.Goexit (t.Fatalf inside fn). The
// expectation is only evaluated on normal return, so an already-failing test
// is not masked by a secondary covmark failure.
func runChecked(t TestingT, mark string, want Expectation, fn func()) {
	t.Helper()
	g := Open(t, mark, want)
	completed := false
	defer func() {
		if completed {
			g.Close()
		} else {
			g.abandon()
		}
	}()
	fn()
	completed = true
}

// SetLogger installs a zap logger that traces guard opens, closes, and hits
// at debug level. telemetry.NewLogger builds a suitable one. Pass nil to
// turn tracing off.
func SetLogger(l *zap.Logger) {
	telemetry.SetLogger(l)
}

// MetricsHandler returns an http.Handler serving prometheus metrics about
// marks and checks, for long-lived suite runners that scrape. Recording is
// off unless enabled in config.
func MetricsHandler() http.Handler {
	return telemetry.MetricsHandler()
}
