// Package export renders extraction results as spreadsheets.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is the name of the worksheet Workbook writes.
const Sheet = "Receipts"

// Row is one attachment of one message. Nil record fields are written as
// empty cells.
type Row struct {
	MessageID          string
	Subject            string
	ReceivedAt         string
	Attachment         string
	Status             string
	Merchant           *string
	Date               *string
	Total              *string
	Model              *string
	StoreNumber        *string
	Confidence         int
	Duplication        int
	OverallConfidence  int
	OverallDuplication int
}

var headers = []string{
	"Message ID",
	"Subject",
	"Received",
	"Attachment",
	"Status",
	"Merchant",
	"Date",
	"Total",
	"Model",
	"Store",
	"Confidence",
	"Duplication",
	"Overall Confidence",
	"Overall Duplication",
}

var columnWidths = []struct {
	from, to string
	width    float64
}{
	{"A", "A", 38}, // message id
	{"B", "B", 40}, // subject
	{"C", "E", 20},
	{"F", "J", 18},
	{"K", "N", 12}, // scores
}

// Workbook returns XLSX bytes with a header row followed by rows.
func Workbook(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than adding a second one
	if err := f.SetSheetName(f.GetSheetName(0), Sheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(Sheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range rows {
		values := []any{
			r.MessageID,
			r.Subject,
			r.ReceivedAt,
			r.Attachment,
			r.Status,
			deref(r.Merchant),
			deref(r.Date),
			deref(r.Total),
			deref(r.Model),
			deref(r.StoreNumber),
			r.Confidence,
			r.Duplication,
			r.OverallConfidence,
			r.OverallDuplication,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(Sheet, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", i+2, err)
			}
		}
	}

	for _, w := range columnWidths {
		if err := f.SetColWidth(Sheet, w.from, w.to, w.width); err != nil {
			return nil, fmt.Errorf("setting width of %s:%s: %w", w.from, w.to, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
