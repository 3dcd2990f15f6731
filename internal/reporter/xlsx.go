package reporter

import (
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/Laisky/errors/v2"
	"github.com/xuri/excelize/v2"

	"api_smoke_testing/internal/model"
)

const (
	SheetName = "API Results"

	minColumnWidth = 12
	maxColumnWidth = 60

	patternType   = "pattern"
	patternValue  = 1
	headerBgColor = "D9E1F2"
	failBgColor   = "FFC7CE"
	slowBgColor   = "FFEB9C"

	// passing cases slower than this are shaded
	slowCaseThresholdMs = 1000
)

// XLSX writes results into a single-sheet workbook at Path.
type XLSX struct {
	Path string
}

func NewXLSX(path string) *XLSX {
	return &XLSX{Path: path}
}

func (x *XLSX) Write(results []model.ResultRecord) error {
	if err := os.MkdirAll(filepath.Dir(x.Path), 0o755); err != nil {
		return errors.Wrap(err, "create report directory")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	widths := make([]int, len(Headers))
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := styleRow(f, 1, styles.header); err != nil {
		return err
	}

	for i, r := range results {
		row := i + 2
		cells := Row(r)
		values := make([]any, len(cells))
		for j, c := range cells {
			values[j] = c
			if n := utf8.RuneCountInString(c); n > widths[j] {
				widths[j] = n
			}
		}
		// status columns stay numeric
		values[3] = r.ExpectedStatus
		values[4] = nil
		if r.ActualStatus != nil {
			values[4] = *r.ActualStatus
		}

		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return errors.Wrapf(err, "write row for case %q", r.CaseName)
		}

		switch {
		case !r.Passed:
			err = styleRow(f, row, styles.fail)
		case r.LatencyMs > slowCaseThresholdMs:
			err = styleRow(f, row, styles.slow)
		}
		if err != nil {
			return err
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, float64(columnWidth(w))); err != nil {
			return errors.Wrapf(err, "set width of column %s", col)
		}
	}

	if err := f.SaveAs(x.Path); err != nil {
		return errors.Wrapf(err, "save report to %s", x.Path)
	}
	return nil
}

// columnWidth pads the longest cell by two and clamps to [12, 60].
func columnWidth(longest int) int {
	return max(minColumnWidth, min(longest+2, maxColumnWidth))
}

type reportStyles struct {
	header, fail, slow int
}

func newStyles(f *excelize.File) (reportStyles, error) {
	var (
		s   reportStyles
		err error
	)
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{headerBgColor}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return s, errors.Wrap(err, "create header style")
	}
	s.fail, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{failBgColor}},
	})
	if err != nil {
		return s, errors.Wrap(err, "create failure style")
	}
	s.slow, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{slowBgColor}},
	})
	if err != nil {
		return s, errors.Wrap(err, "create slow style")
	}
	return s, nil
}

func styleRow(f *excelize.File, row, style int) error {
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(Headers), row)
	if err := f.SetCellStyle(SheetName, first, last, style); err != nil {
		return errors.Wrapf(err, "style row %d", row)
	}
	return nil
}
