package source

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// defaultRange covers the largest menu grid we expect: weekday columns
// plus label rows for a multi-week plan.
const defaultRange = "A1:Z100"

// SheetsFetcher pulls a menu grid straight out of a Google Sheet, for
// kitchens that maintain their plans there instead of uploading files.
// The sheet must be readable with an API key, which means shared via
// link.
type SheetsFetcher struct {
	apiKey string
}

func NewSheetsFetcher(apiKey string) *SheetsFetcher {
	return &SheetsFetcher{apiKey: apiKey}
}

// Fetch reads the given A1-notation range and returns the cell matrix
// in the shape the grid parser takes.
func (f *SheetsFetcher) Fetch(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("google sheets api key is not configured")
	}

	service, err := sheets.NewService(ctx, option.WithAPIKey(f.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	if readRange == "" {
		readRange = defaultRange
	}
	resp, err := service.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet %s: %w", spreadsheetID, err)
	}

	cells := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		line := make([]string, 0, len(row))
		for _, value := range row {
			line = append(line, fmt.Sprint(value))
		}
		cells = append(cells, line)
	}
	return cells, nil
}
