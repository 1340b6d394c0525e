package inbox

import "errors"

var (
	// ErrMessageNotFound is returned when no message has the requested id
	ErrMessageNotFound = errors.New("message not found")
	// ErrBlobNotFound is returned when attachment storage has no such blob
	ErrBlobNotFound = errors.New("blob not found")
	// ErrInvalidBlobRef is returned for references that escape their container
	ErrInvalidBlobRef = errors.New("invalid blob reference")
	// ErrAttachmentRetrieval wraps failures reading attachment bytes
	ErrAttachmentRetrieval = errors.New("attachment retrieval failed")
	// ErrInvalidStatus is returned for a status filter other than new or categorized
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTicket is returned for a ticket value other than new, open or closed
	ErrInvalidTicket = errors.New("invalid ticket")
	// ErrInvalidLabels is returned when industry or category is missing
	ErrInvalidLabels = errors.New("invalid labels")
)
