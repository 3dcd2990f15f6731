package reporter

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"api_smoke_testing/internal/model"
)

// Table prints results as a text table, e.g. to stdout after a run.
type Table struct {
	Out io.Writer
}

func NewTable(out io.Writer) *Table {
	return &Table{Out: out}
}

func (t *Table) Write(results []model.ResultRecord) error {
	table := tablewriter.NewWriter(t.Out)
	table.SetHeader(Headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, r := range results {
		table.Append(Row(r))
	}
	table.Render()
	return nil
}
