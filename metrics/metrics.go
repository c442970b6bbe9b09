// Package metrics wraps go-metrics counters for the hub's hot paths and
// periodically reports the registry as JSON.
package metrics

import (
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

var reg = gometrics.DefaultRegistry

// Incr bumps a named counter.
func Incr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, reg).Inc(i)
}

// Decr lowers a named counter.
func Decr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, reg).Dec(i)
}

// Count reads a named counter. Mostly for tests.
func Count(name string) int64 {
	return gometrics.GetOrRegisterCounter(name, reg).Count()
}

// Start launches the periodic JSON reporter. It returns immediately; the
// reporter goroutine runs for the life of the process.
func Start(tick time.Duration, w io.Writer) {
	if tick <= 0 {
		return
	}
	go gometrics.WriteJSON(reg, tick, w)
}

// WriteOnce dumps the registry a single time, for shutdown reporting.
func WriteOnce(w io.Writer) {
	gometrics.WriteJSONOnce(reg, w)
}
