package inbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zombor/receipt-inbox/internal/extraction"
	"github.com/zombor/receipt-inbox/internal/schema"
)

var editFieldSchema = `{"type": ["string", "number", "null"]}`

var saveEditsSchema = schema.MustCompile("save-edits.json", `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"filename": {"type": "string"},
		"name": {"type": "string"},
		"merchant": `+editFieldSchema+`,
		"date": `+editFieldSchema+`,
		"total": `+editFieldSchema+`,
		"model": `+editFieldSchema+`,
		"store_number": `+editFieldSchema+`
	}
}`)

// EditRequest is a reviewer's correction to one or all attachments of a
// message. An empty Filename targets every attachment.
type EditRequest struct {
	MessageID string
	Filename  string
	Edit      extraction.Edit
}

// ParseEditRequest validates and decodes a save-edits request body. The
// target attachment may be given as filename or name.
func ParseEditRequest(body []byte) (EditRequest, error) {
	if err := saveEditsSchema.Validate(body); err != nil {
		return EditRequest{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return EditRequest{}, fmt.Errorf("decoding edit request: %w", err)
	}

	var req EditRequest
	if err := json.Unmarshal(fields["id"], &req.MessageID); err != nil {
		return EditRequest{}, fmt.Errorf("decoding id: %w", err)
	}
	for _, key := range []string{"filename", "name"} {
		if raw, ok := fields[key]; ok && req.Filename == "" {
			if err := json.Unmarshal(raw, &req.Filename); err != nil {
				return EditRequest{}, fmt.Errorf("decoding %s: %w", key, err)
			}
		}
	}
	req.Edit = extraction.NewEdit(fields)
	return req, nil
}

// EditResult reports what SaveEdits changed
type EditResult struct {
	Matched bool     `json:"matched"`
	Updated []string `json:"updated"`
	Message *Message `json:"message"`
}

// SaveEdits applies reviewer corrections to the targeted attachments.
// Scores are never changed. When the edit names no record field or no
// attachment matches, nothing is written and the result reports Matched
// false.
func (s *Service) SaveEdits(ctx context.Context, req EditRequest) (*EditResult, error) {
	msg, err := s.db.GetMessage(req.MessageID)
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}

	result := &EditResult{Updated: []string{}, Message: msg}
	if req.Edit.Empty() {
		s.logger.Info("Edit carries no record fields", "message_id", req.MessageID)
		return result, nil
	}
	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		if req.Filename != "" && att.Name != req.Filename {
			continue
		}
		text := extraction.ApplyEdit(att.OCR.Text, req.Edit)
		att.OCR.Text = &text
		result.Updated = append(result.Updated, att.Name)
	}

	if len(result.Updated) == 0 {
		s.logger.Warn("Edit matched no attachment", "message_id", req.MessageID, "filename", req.Filename)
		return result, nil
	}

	result.Matched = true
	msg.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveMessage(msg); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	s.logger.Info("Saved edits", "message_id", req.MessageID, "attachments", result.Updated)
	return result, nil
}
