// Package monitor is the live HTTP introspection server spec.md treats
// as an out-of-scope metrics/tracing sink: it exposes the running
// core.Runtime's task table, ready queue depth, timer wheel size, and
// host resource usage over a small JSON API, plus CPU profile capture.
//
// Grounded near file-for-file in spirit on monitoring/monitor.go:
// gorilla/mux for routing, net/http/pprof + google/pprof/profile for
// profile capture, shirou/gopsutil for host stats, syifan/goseth for
// reflecting arbitrary state into JSON, and tebeka/atexit to close the
// listener when the process exits through atexit.Exit or atexit.Fatal.
package monitor
