package driver

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

func newReportTable(w io.Writer, title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.SetTitle(title)
	tbl.AppendHeader(table.Row{"Metric", "Value"})
	return tbl
}

// Render writes the demo outcome as a table.
func (r *DemoReport) Render(w io.Writer) {
	tbl := newReportTable(w, "demo")
	tbl.AppendRows([]table.Row{
		{"inserted", r.Inserted},
		{"duplicates", r.Duplicates},
		{"alloc failed", r.AllocFailed},
		{"erased", r.Erased},
		{"not found", r.NotFound},
		{"inorder after insert", fmt.Sprint(r.AfterInsert)},
		{"inorder after erase", fmt.Sprint(r.AfterErase)},
	})
	tbl.AppendSeparator()
	tbl.AppendRow(table.Row{"len", r.Len})
	tbl.AppendFooter(table.Row{"height", fmt.Sprintf("%d (bound %d)", r.Height, r.MaxHeight)})
	tbl.Render()
}

// Render writes the soak outcome as a table.
func (r *SoakReport) Render(w io.Writer) {
	tbl := newReportTable(w, fmt.Sprintf("soak %s/%s", r.Variant, r.Alloc))
	tbl.AppendRows([]table.Row{
		{"seed", strconv.FormatUint(r.Seed, 10)},
		{"workers", r.Workers},
		{"rounds", fmt.Sprintf("%d/%d completed, %d failed", r.Completed, r.Rounds, r.Failed)},
		{"ops", humanize.Comma(r.Ops)},
		{"inserted", humanize.Comma(r.Inserted)},
		{"duplicates", humanize.Comma(r.Duplicates)},
		{"alloc failed", humanize.Comma(r.AllocFailed)},
		{"erased", humanize.Comma(r.Erased)},
		{"not found", humanize.Comma(r.NotFound)},
		{"validations", humanize.Comma(r.Validations)},
		{"max height", r.MaxHeight},
	})
	tbl.AppendSeparator()
	tbl.AppendRows([]table.Row{
		{"elapsed", r.Elapsed.String()},
		{"ops/s", r.OpsPerSecond()},
	})
	tbl.AppendFooter(table.Row{"rss", r.RSSHuman()})
	tbl.Render()
}
