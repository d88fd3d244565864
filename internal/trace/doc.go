// Package trace records what the language server spends its time on.
//
// Two layers live here. Tracers receive low-level span and point events and
// write them to a stream (text or NDJSON) or keep the most recent ones in a
// ring buffer. Perf events sit on top: a check cycle opens one named event,
// starts and stops timers inside it, and completes it when the cycle ends.
// Completed perf events are queued until the logger is flushed, which the
// server does once per cycle.
//
//	perf := trace.NewPerfLogger(tracer, logger)
//	ev := perf.CreateEvent("incremental_check_event")
//	timer := ev.Start("incremental_check_time")
//	...
//	ev.Stop(timer)
//	perf.CompleteEvent(ev)
//	perf.Flush()
//
// Tracing verbosity is controlled by Level; events carry a Scope, and a level
// admits every scope up to its own granularity.
package trace
