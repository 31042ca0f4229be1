// Package sheets implements the tabular report sink on the Google Sheets
// API: batch row appends and per-cell background coloring.
package sheets

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	gsheets "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/jonathan/call-auditor/internal/colmap"
)

// Client appends report rows to one worksheet and colors its cells.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheetName     string
	sheetID       int64
	sheetIDKnown  bool
	log           *logrus.Entry
}

// NewClient builds a Sheets client for one spreadsheet and worksheet.
func NewClient(ctx context.Context, spreadsheetID, sheetName string, log *logrus.Entry, opts ...option.ClientOption) (*Client, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log,
	}, nil
}

// AppendRows appends the batch in a single values.append call and returns
// the sink's updated-range descriptor. One call per batch keeps the range
// contiguous, which the coloring step depends on.
func (c *Client) AppendRows(ctx context.Context, rowsToAdd [][]string) (string, error) {
	values := make([][]interface{}, len(rowsToAdd))
	for i, row := range rowsToAdd {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	resp, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName, &gsheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to append rows: %w", err)
	}
	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return "", fmt.Errorf("append response contains no updated range")
	}

	c.log.WithFields(logrus.Fields{
		"rows":          len(rowsToAdd),
		"updated_range": resp.Updates.UpdatedRange,
	}).Info("rows appended to sheet")

	return resp.Updates.UpdatedRange, nil
}

// ColorCell sets the background of a single cell addressed by 1-indexed row
// and column letter.
func (c *Client) ColorCell(ctx context.Context, row int, colLetter string, color RGBColor) error {
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	colIndex := colmap.ColumnIndex(colLetter)
	if colIndex == 0 {
		return fmt.Errorf("invalid column letter %q", colLetter)
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			RepeatCell: &gsheets.RepeatCellRequest{
				Range: &gsheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(row - 1),
					EndRowIndex:      int64(row),
					StartColumnIndex: int64(colIndex - 1),
					EndColumnIndex:   int64(colIndex),
				},
				Cell: &gsheets.CellData{
					UserEnteredFormat: &gsheets.CellFormat{
						BackgroundColor: &gsheets.Color{
							Red:   float64(color.Red) / 255.0,
							Green: float64(color.Green) / 255.0,
							Blue:  float64(color.Blue) / 255.0,
						},
					},
				},
				Fields: "userEnteredFormat.backgroundColor",
			},
		}},
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to color cell %s%d: %w", colLetter, row, err)
	}
	return nil
}

// resolveSheetID looks up the numeric sheet ID for the configured worksheet
// name once and caches it.
func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetIDKnown {
		return c.sheetID, nil
	}

	spreadsheet, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to look up spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.sheetName {
			c.sheetID = sheet.Properties.SheetId
			c.sheetIDKnown = true
			return c.sheetID, nil
		}
	}
	return 0, fmt.Errorf("worksheet %q not found in spreadsheet", c.sheetName)
}
