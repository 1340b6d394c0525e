package inbox

import (
	"context"
	"fmt"

	"github.com/zombor/receipt-inbox/internal/extraction"
)

// ProcessAttachments runs extraction over every attachment of a message,
// one at a time, then recomputes the message scores and stores the result.
// A failing attachment is recorded as failed and never stops the others;
// only a missing message is returned as an error. The run outlives ctx
// cancellation so a dropped client cannot fail the remaining attachments.
func (s *Service) ProcessAttachments(ctx context.Context, id string) (*Summary, error) {
	ctx = context.WithoutCancel(ctx)
	msg, err := s.db.GetMessage(id)
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}

	summary := &Summary{
		MessageID:            msg.ID,
		AttachmentsProcessed: len(msg.Attachments),
		Results:              make([]AttachmentSummary, 0, len(msg.Attachments)),
	}
	if len(msg.Attachments) == 0 {
		s.logger.Info("Message has no attachments", "message_id", id)
		return summary, nil
	}

	multiple := len(msg.Attachments) > 1
	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		att.OCR = s.extractAttachment(ctx, msg.ID, att, multiple)
		summary.Results = append(summary.Results, AttachmentSummary{
			Filename: att.Name,
			Status:   att.OCR.Status,
		})
	}

	score := extraction.Aggregate(msg.ocrResults())
	msg.OverallConfidence = score.OverallConfidence
	msg.OverallDuplication = score.OverallDuplication
	msg.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveMessage(msg); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	s.logger.Info("Processed attachments",
		"message_id", id,
		"attachments", len(msg.Attachments),
		"overall_confidence", score.OverallConfidence,
		"overall_duplication", score.OverallDuplication,
	)
	return summary, nil
}

func (s *Service) extractAttachment(ctx context.Context, messageID string, att *Attachment, multiple bool) extraction.OCRResult {
	now := s.timeSource.Now()
	result := extraction.OCRResult{Engine: s.scanner.Engine(), LastUpdated: &now}

	fail := func(err error) extraction.OCRResult {
		s.logger.Error("Attachment extraction failed", "message_id", messageID, "attachment", att.Name, "error", err)
		msg := err.Error()
		result.Status = extraction.StatusFailed
		result.Error = &msg
		return result
	}

	data, err := s.readAttachment(att)
	if err != nil {
		return fail(err)
	}

	raw, err := s.scanner.ScanReceipt(ctx, data, att.ContentType)
	if err != nil {
		return fail(fmt.Errorf("reading %s: %w", att.Name, err))
	}

	extracted := extraction.Extract(raw, multiple)
	s.logger.Debug("Extracted receipt", "message_id", messageID, "attachment", att.Name, "tier", extracted.Tier)

	text := extracted.Record.Text()
	result.Status = extraction.StatusSuccess
	result.Text = &text
	return result
}

// readAttachment fetches the bytes behind an attachment's blob path, or its
// name when no path was recorded
func (s *Service) readAttachment(att *Attachment) ([]byte, error) {
	ref := att.Name
	if att.BlobPath != nil && *att.BlobPath != "" {
		ref = *att.BlobPath
	}
	blob, err := s.storage.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAttachmentRetrieval, err)
	}
	data, err := s.storage.Get(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAttachmentRetrieval, err)
	}
	return data, nil
}
