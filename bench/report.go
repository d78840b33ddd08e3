package bench

import (
	"fmt"
	"io"
	"strings"
)

// WriteTable writes a fixed-width summary table with one row per
// concurrency level.
func WriteTable(w io.Writer, results []Metrics) {
	fmt.Fprintf(w, "%-10s %-15s %-15s %-15s %-15s %-15s\n",
		"Workers",
		"Total Ops",
		"Successful",
		"Failed",
		"Lock Timeouts",
		"Duration(s)")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, metrics := range results {
		fmt.Fprintf(w, "%-10d %-15d %-15d %-15d %-15d %-15.2f\n",
			metrics.Workers,
			metrics.TotalOps,
			metrics.SuccessfulOps,
			metrics.FailedOps,
			metrics.LockTimeouts,
			metrics.Elapsed.Seconds())
	}
}
