package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/zombor/receipt-inbox/internal/export"
	"github.com/zombor/receipt-inbox/internal/extraction"
)

// ExportXLSX renders one spreadsheet row per attachment across all messages
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	messages, err := s.ListMessages(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}

	rows := make([]export.Row, 0, len(messages))
	for _, m := range messages {
		for _, att := range m.Attachments {
			row := export.Row{
				MessageID:          m.ID,
				Subject:            m.Subject,
				ReceivedAt:         m.ReceivedAt.Format(time.RFC3339),
				Attachment:         att.Name,
				Status:             string(att.OCR.Status),
				OverallConfidence:  m.OverallConfidence,
				OverallDuplication: m.OverallDuplication,
			}
			if att.OCR.Text != nil {
				if rec, err := extraction.ParseRecord(*att.OCR.Text); err == nil {
					row.Merchant = rec.Merchant
					row.Date = rec.Date
					row.Total = rec.Total
					row.Model = rec.Model
					row.StoreNumber = rec.StoreNumber
					row.Confidence = rec.ConfidenceScore
					row.Duplication = rec.DuplicationScore
				}
			}
			rows = append(rows, row)
		}
	}

	data, err := export.Workbook(rows)
	if err != nil {
		return nil, fmt.Errorf("building workbook: %w", err)
	}

	s.logger.Info("Exported workbook",
		"messages", len(messages),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}
