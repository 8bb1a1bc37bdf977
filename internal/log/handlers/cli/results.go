package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apex/log"
)

// resolverColumns contains the width of each resolver_item column.
var resolverColumns = []int{4, 28, 11, 11, 11, 7}

func resolverRow(cells ...string) string {
	var padded []string
	for idx, cell := range cells {
		padded = append(padded, RightPad(cell, resolverColumns[idx]))
	}
	return "│ " + strings.Join(padded, " ") + " │\n"
}

func resolverRowWidth() int {
	width := len(resolverColumns) - 1
	for _, w := range resolverColumns {
		width += w
	}
	return width
}

func formatLatency(ms float64) string {
	return fmt.Sprintf("%.2fms", ms)
}

// logResolverItem prints a row of the resolvers table. The first row also
// prints the header and the last row prints the footer.
func logResolverItem(w io.Writer, f log.Fields) error {
	colWidth := resolverRowWidth()

	index, _ := f.Get("index").(int)
	totalCount, _ := f.Get("total_count").(int)
	rank, _ := f.Get("rank").(int)
	resolver, _ := f.Get("resolver").(string)
	mean, _ := f.Get("mean_latency_ms").(float64)
	median, _ := f.Get("median_latency_ms").(float64)
	stddev, _ := f.Get("stddev_latency_ms").(float64)
	successCount, _ := f.Get("success_count").(int)
	failureCount, _ := f.Get("failure_count").(int)

	if index == 0 {
		fmt.Fprintln(w, "┏"+strings.Repeat("━", colWidth+2)+"┓")
		fmt.Fprint(w, strings.NewReplacer("│", "┃").Replace(
			resolverRow("#", "resolver", "mean", "median", "stddev", "ok")))
		fmt.Fprintln(w, "┡"+strings.Repeat("━", colWidth+2)+"┩")
	}

	rankCell := ""
	if rank > 0 {
		rankCell = bold.Sprintf("%d", rank)
	}
	fmt.Fprint(w, resolverRow(
		rankCell,
		resolver,
		formatLatency(mean),
		formatLatency(median),
		formatLatency(stddev),
		fmt.Sprintf("%d/%d", successCount, successCount+failureCount),
	))

	if index == totalCount-1 {
		fmt.Fprintln(w, "└"+strings.Repeat("─", colWidth+2)+"┘")
	}
	return nil
}

// logRunItem prints a run of the history.
func logRunItem(w io.Writer, f log.Fields) error {
	colWidth := 24

	index, _ := f.Get("index").(int)
	totalCount, _ := f.Get("total_count").(int)
	runUUID, _ := f.Get("uuid").(string)
	startTime, _ := f.Get("start_time").(time.Time)
	network, _ := f.Get("network").(string)
	domains, _ := f.Get("domains").(string)
	resolverCount, _ := f.Get("resolver_count").(int64)
	selection, _ := f.Get("selection").(string)
	iface, _ := f.Get("interface").(string)
	isDone, _ := f.Get("is_done").(bool)
	isApplied, _ := f.Get("is_applied").(bool)

	if index == 0 {
		fmt.Fprintln(w, "┏"+strings.Repeat("━", colWidth*2+2)+"┓")
	} else {
		fmt.Fprintln(w, "┢"+strings.Repeat("━", colWidth*2+2)+"┪")
	}

	firstRow := RightPad(fmt.Sprintf("%s - %s", runUUID, startTime.Format(time.RFC822)), colWidth*2)
	fmt.Fprintf(w, "┃ %s ┃\n", firstRow)
	fmt.Fprintln(w, "┡"+strings.Repeat("━", colWidth*2+2)+"┩")

	status := "incomplete"
	if isDone {
		status = "not applied"
	}
	if isApplied {
		status = fmt.Sprintf("applied to %s", iface)
	}
	if selection == "" {
		selection = "-"
	}
	fmt.Fprintf(w, "│ %s %s│\n",
		RightPad(fmt.Sprintf("%d resolvers over %s", resolverCount, network), colWidth),
		RightPad(status, colWidth))
	fmt.Fprintf(w, "│ %s│\n", RightPad(fmt.Sprintf("domains: %s", domains), colWidth*2+1))
	fmt.Fprintf(w, "│ %s│\n", RightPad(fmt.Sprintf("selection: %s", selection), colWidth*2+1))

	if index == totalCount-1 {
		fmt.Fprintln(w, "└"+strings.Repeat("─", colWidth*2+2)+"┘")
	}
	return nil
}
