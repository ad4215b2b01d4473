package main

import (
	"fmt"
	"io"
	"time"

	"orlint/internal/driver"
)

// printTimings writes the per-rule table of every analyzed file, then the
// wall time of the batch. Cached files have no table.
func printTimings(out io.Writer, res *driver.Result) {
	if out == nil || res == nil {
		return
	}
	cached := 0
	for _, fr := range res.Files {
		if fr.Cached {
			cached++
			continue
		}
		if fr.Result == nil || len(fr.Result.Timings.Phases) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s (%d rules)\n%s", fr.Path, fr.Result.RulesRun, fr.Result.Timings)
	}
	fmt.Fprintf(out, "analyzed %d files (%d cached) in %.1f ms\n", len(res.Files), cached, toMillis(res.Duration))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
