package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kentandrian/vertexai-demos/internal/claims"
)

// summaryColumns are the columns shown in the terminal table, indexes into Columns.
var summaryColumns = []int{9, 8, 10, 12, 13, 16, 17, 18, 19}

// WriteTable prints a compact aligned summary of res for terminals.
func WriteTable(out io.Writer, res *claims.Result) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	gc := res.GlobalContext
	fmt.Fprintf(tw, "Report:\t%s\n", gc.ReportTitle)
	fmt.Fprintf(tw, "Employee:\t%s (%s)\n", gc.EmployeeName, gc.EmployeeID)
	fmt.Fprintf(tw, "Entity:\t%s  PC %s  CC %s\n", gc.Entity, gc.ProfitCenter, gc.CostCenter)
	fmt.Fprintf(tw, "Travel:\t%s .. %s\n", gc.TravelEventStartDate, gc.TravelEventEndDate)
	fmt.Fprintln(tw)

	head := make([]string, len(summaryColumns))
	for i, c := range summaryColumns {
		head[i] = strings.ToUpper(Columns[c])
	}
	fmt.Fprintln(tw, strings.Join(head, "\t"))
	for _, item := range res.Items {
		row := Row(item)
		cells := make([]string, len(summaryColumns))
		for i, c := range summaryColumns {
			cells[i] = truncate(row[c], 40)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Classified:\t%d of %d items\n", len(res.Items), res.Attempted())

	if len(res.Failures) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "FAILED ITEMS (%d)\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintf(tw, "#%d\t%s\t%s\n", f.Index, truncate(f.Description, 40), f.Message)
		}
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
