package inbox

import (
	"time"

	"github.com/zombor/receipt-inbox/internal/extraction"
	"github.com/zombor/receipt-inbox/internal/routing"
)

// MessageStatus tracks whether a message has been categorized yet
type MessageStatus string

const (
	StatusNew         MessageStatus = "new"
	StatusCategorized MessageStatus = "categorized"
)

// Ticket is the support-ticket state of a message
type Ticket string

const (
	TicketNew    Ticket = "new"
	TicketOpen   Ticket = "open"
	TicketClosed Ticket = "closed"
)

func (t Ticket) valid() bool {
	return t == TicketNew || t == TicketOpen || t == TicketClosed
}

// Attachment is one file carried by a message together with its
// extraction result
type Attachment struct {
	Name        string               `json:"name"`
	ContentType string               `json:"content_type"`
	BlobPath    *string              `json:"blob_path"`
	OCR         extraction.OCRResult `json:"ocr"`
}

// Message is the persisted document for one inbound email. It owns its
// attachments, in the order they were received.
type Message struct {
	ID                 string          `json:"id"`
	Subject            string          `json:"subject"`
	From               string          `json:"from"`
	Body               string          `json:"body"`
	ReceivedAt         time.Time       `json:"received_at"`
	Status             MessageStatus   `json:"status"`
	Ticket             Ticket          `json:"ticket,omitempty"`
	Labels             *routing.Labels `json:"labels"`
	AssignedAgent      string          `json:"assigned_agent,omitempty"`
	Attachments        []Attachment    `json:"attachments"`
	OverallConfidence  int             `json:"overall_confidence"`
	OverallDuplication int             `json:"overall_duplication"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ocrResults lists the attachment results in attachment order
func (m *Message) ocrResults() []extraction.OCRResult {
	out := make([]extraction.OCRResult, len(m.Attachments))
	for i, a := range m.Attachments {
		out[i] = a.OCR
	}
	return out
}

// AttachmentSummary reports the outcome for one attachment of an OCR run
type AttachmentSummary struct {
	Filename string            `json:"filename"`
	Status   extraction.Status `json:"status"`
}

// Summary is the result of processing every attachment of a message
type Summary struct {
	MessageID            string              `json:"message_id"`
	AttachmentsProcessed int                 `json:"attachments_processed"`
	Results              []AttachmentSummary `json:"results"`
}

// ListFilter narrows ListMessages. Empty fields match everything.
type ListFilter struct {
	Status        MessageStatus
	AssignedAgent string
}
