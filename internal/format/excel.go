package format

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

const sheetName = "Menu"

// XLSX writes the resolved menu as a workbook. Replaced ingredients
// become red rich-text runs so a reviewer can spot every substitution
// without diffing against the original.
func (w *Writer) XLSX(res *domain.ResolvedMenu) ([]byte, error) {
	cells, rich := w.renderGrid(res)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating cell style: %w", err)
	}

	for r, row := range cells {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("addressing cell %d,%d: %w", r, c, err)
			}
			if segs, ok := rich[domain.CellRef{Row: r, Col: c}]; ok {
				err = f.SetCellRichText(sheetName, cell, richRuns(segs))
			} else {
				err = f.SetCellValue(sheetName, cell, value)
			}
			if err != nil {
				return nil, fmt.Errorf("writing cell %s: %w", cell, err)
			}
			if err := f.SetCellStyle(sheetName, cell, cell, wrap); err != nil {
				return nil, fmt.Errorf("styling cell %s: %w", cell, err)
			}
		}
	}

	if res.Document.Grid.Cols > 0 {
		last, err := excelize.ColumnNumberToName(res.Document.Grid.Cols)
		if err != nil {
			return nil, fmt.Errorf("sizing columns: %w", err)
		}
		if err := f.SetColWidth(sheetName, "A", last, 40); err != nil {
			return nil, fmt.Errorf("sizing columns: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func richRuns(segs []segment) []excelize.RichTextRun {
	runs := make([]excelize.RichTextRun, 0, len(segs))
	for _, s := range segs {
		run := excelize.RichTextRun{Text: s.text}
		if s.replaced {
			run.Font = &excelize.Font{Color: "FF0000"}
		}
		runs = append(runs, run)
	}
	return runs
}
