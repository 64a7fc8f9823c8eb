package parser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

// parseXLSX reads the first worksheet of an xlsx workbook and hands
// its cell matrix to the grid parser.
func (p *Parser) parseXLSX(raw []byte) (*domain.MenuDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid xlsx: %v", err)}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &ParseError{Reason: "xlsx workbook has no sheets"}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("reading sheet %q: %v", sheet, err)}
	}
	return p.ParseGrid(rows)
}
