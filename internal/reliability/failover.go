// Package reliability decides what a component does when one of its
// dependencies errors out.
package reliability

type FailureStrategy string

const (
	// FailOpen lets traffic through despite the error. The catalog cache
	// uses it: a dead cache should slow requests down, not fail them.
	FailOpen FailureStrategy = "fail_open"
	// FailClosed blocks traffic on error.
	FailClosed FailureStrategy = "fail_closed"
)

// ShouldAllow reports whether to proceed given an error and a strategy.
func ShouldAllow(strategy FailureStrategy, err error) bool {
	if err == nil {
		return true
	}
	return strategy == FailOpen
}
