// Package cli provides the interactive workhub terminal client.
//
// The client talks to the REST API: it registers and logs in users, connects
// the remote calendar, triggers a sync and lists labels, groups and upcoming
// schedules. The REPL is started via App.Root(ctx), which blocks until the
// user exits or stdin is closed.
package cli
