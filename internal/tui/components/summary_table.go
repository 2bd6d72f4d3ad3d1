package components

import (
	"fmt"
	"io"
	"text/tabwriter"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// WriteSummaryTable prints one line per pivoted summary row. Missing
// metrics render as "-".
func WriteSummaryTable(out io.Writer, rows []domain.WindowSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tNAME\tTYPE\tDAYS\tCPU AVG\tCPU PEAK\tCPU P95\tMEM AVG\tNET IN\tNET OUT\tSTATUS FAIL")
	fmt.Fprintln(w, "--------\t----\t----\t----\t-------\t--------\t-------\t-------\t------\t-------\t-----------")
	for _, r := range rows {
		netIn, netOut := r.NetInBytesTotal, r.NetOutBytesTotal
		netSuffix := "B"
		if netIn == nil && netOut == nil {
			netIn, netOut = r.NetInAvgBytes, r.NetOutAvgBytes
			netSuffix = "B/s"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ResourceID,
			r.ResourceName,
			r.ResourceType,
			r.SampleDays, r.WindowDays,
			optional(r.CPUAvgPct, "%"),
			optional(r.CPUPeakPct, "%"),
			optional(r.CPUP95Pct, "%"),
			optional(r.MemAvgPct, "%"),
			optional(netIn, netSuffix),
			optional(netOut, netSuffix),
			optional(r.StatusCheckFailures, ""),
		)
	}
	return w.Flush()
}

func optional(v *float64, suffix string) string {
	if v == nil {
		return "-"
	}
	return FormatValue(*v, suffix)
}
