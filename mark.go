package covmark

import (
	"fmt"
	"sync"
)

// Mark is a declared coverage mark. Plain string constants with Hit and
// Check work equally well; Declare additionally registers the name so strict
// mode can reject checks against marks that do not exist.
type Mark string

var (
	declaredMu    sync.RWMutex
	declaredMarks = make(map[string]struct{})
)

// Declare registers a mark name and returns it as a Mark. Names are global
// to the process; declaring the same name twice panics, since two call sites
// sharing one mark would make its checks ambiguous. Declare at package var
// level, next to the code that hits the mark.
func Declare(name string) Mark {
	declaredMu.Lock()
	defer declaredMu.Unlock()
	if _, dup := declaredMarks[name]; dup {
		panic(fmt.Sprintf("covmark: mark %q declared twice; mark names must be globally unique", name))
	}
	declaredMarks[name] = struct{}{}
	return Mark(name)
}

func isDeclared(name string) bool {
	declaredMu.RLock()
	defer declaredMu.RUnlock()
	_, ok := declaredMarks[name]
	return ok
}

func (m Mark) String() string { return string(m) }

// Hit records that execution reached this mark on the calling goroutine.
func (m Mark) Hit() {
	Hit(string(m))
}

// Check runs fn and fails the test unless this mark was hit at least once.
func (m Mark) Check(t TestingT, fn func()) {
	t.Helper()
	runChecked(t, string(m), AtLeastOnce(), fn)
}

// CheckNever runs fn and fails the test if this mark was hit.
func (m Mark) CheckNever(t TestingT, fn func()) {
	t.Helper()
	runChecked(t, string(m), Never(), fn)
}

// CheckCount runs fn and fails the test unless this mark was hit exactly n
// times.
func (m Mark) CheckCount(t TestingT, n int, fn func()) {
	t.Helper()
	runChecked(t, string(m), Exactly(n), fn)
}
