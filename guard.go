package covmark

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/covmark/covmark/internal/registry"
	"github.com/covmark/covmark/internal/telemetry"
)

type expectationKind int

const (
	expectAtLeastOnce expectationKind = iota
	expectNever
	expectExactly
)

// Expectation is the condition a Guard verifies against the observed hit
// count when it closes.
type Expectation struct {
	kind expectationKind
	n    int
}

// AtLeastOnce is satisfied by one or more hits.
func AtLeastOnce() Expectation {
	return Expectation{kind: expectAtLeastOnce}
}

// Never is satisfied only by zero hits.
func Never() Expectation {
	return Expectation{kind: expectNever}
}

// Exactly is satisfied only by exactly n hits.
func Exactly(n int) Expectation {
	return Expectation{kind: expectExactly, n: n}
}

func (e Expectation) satisfied(count int) bool {
	switch e.kind {
	case expectNever:
		return count == 0
	case expectExactly:
		return count == e.n
	default:
		return count >= 1
	}
}

func (e Expectation) String() string {
	switch e.kind {
	case expectNever:
		return "no hits"
	case expectExactly:
		return fmt.Sprintf("exactly %d hit(s)", e.n)
	default:
		return "at least 1 hit"
	}
}

// Guard is an open check on one mark, scoped to the calling goroutine.
// Close must run on the goroutine that opened it. Check, CheckNever, and
// CheckCount manage a Guard internally and are the usual surface; use Open
// directly when the guarded region does not fit in a closure:
//
//	g := covmark.Open(t, "cache_expired", covmark.AtLeastOnce())
//	defer g.Close()
type Guard struct {
	t       TestingT
	mark    string
	want    Expectation
	checkID string
	inert   bool
	closed  bool
}

// Open begins a check for the mark on the calling goroutine. It fails the
// test immediately when the mark already has an open guard on this goroutine
// (a bug in the test, not a runtime condition), then clears any stale count
// a previous unguarded execution may have left behind and arms the mark.
func Open(t TestingT, mark string, want Expectation) *Guard {
	t.Helper()
	loadSettings()
	if !enabledSetting {
		return &Guard{inert: true}
	}
	if strictSetting && !isDeclared(mark) {
		t.Fatalf("covmark: mark %q checked but never declared (strict_marks is on)", mark)
		return &Guard{inert: true}
	}
	if err := registry.Arm(mark); err != nil {
		t.Fatalf("covmark: %v", err)
		return &Guard{inert: true}
	}
	registry.Reset(mark)

	g := &Guard{t: t, mark: mark, want: want}
	if telemetry.Logger() != nil {
		// Correlates nested guard open/close pairs in the trace.
		g.checkID = uuid.New().String()
	}
	telemetry.TraceGuardOpened(g.checkID, mark, want.String())
	return g
}

// Close reads the hit count, unconditionally resets the counter and disarms
// the mark, then fails the test when the count does not satisfy the
// expectation. Closing twice is a no-op.
func (g *Guard) Close() {
	g.finish(false)
}

// abandon tears the guard down without evaluating the expectation. Used when
// the guarded block is unwinding, so the counter and armed set never leak
// into the next test on this goroutine.
func (g *Guard) abandon() {
	g.finish(true)
}

func (g *Guard) finish(abandoned bool) {
	if g == nil || g.inert || g.closed {
		return
	}
	g.closed = true

	count := registry.Count(g.mark)
	registry.Reset(g.mark)
	registry.Disarm(g.mark)

	if abandoned {
		telemetry.CountCheck(telemetry.OutcomeAbandoned)
		telemetry.TraceGuardClosed(g.checkID, g.mark, count, telemetry.OutcomeAbandoned)
		return
	}
	if g.want.satisfied(count) {
		telemetry.CountCheck(telemetry.OutcomePass)
		telemetry.TraceGuardClosed(g.checkID, g.mark, count, telemetry.OutcomePass)
		return
	}
	telemetry.CountCheck(telemetry.OutcomeFail)
	telemetry.TraceGuardClosed(g.checkID, g.mark, count, telemetry.OutcomeFail)
	g.t.Helper()
	g.t.Fatalf("covmark: mark %q: got %d hit(s), want %s", g.mark, count, g.want)
}
