// Package workspace keeps open editor files analyzed.
//
// A Coordinator tracks each file through Unanalyzed, Parsing, Analyzing,
// Ready and Stale. Edits cancel the running cycle of the file and restart a
// debounce timer; Save bypasses it. Subscribers are told when a file reaches
// Ready with a diagnostic set different from the one they saw last.
package workspace
