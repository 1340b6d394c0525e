package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-inbox/internal/extraction"
	"github.com/zombor/receipt-inbox/internal/routing"
	"github.com/zombor/receipt-inbox/internal/scanning"
)

// IDGenerator generates unique IDs for messages
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now().UTC()
}

// Service handles message operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	directory   *routing.Directory
	idGenerator IDGenerator
	timeSource  TimeSource
	logger      *slog.Logger
}

// NewService creates a new Service with UUID ids and the wall clock
func NewService(db DB, scanner scanning.Scanner, storage Storage, directory *routing.Directory, logger *slog.Logger) *Service {
	return NewServiceWithDeps(db, scanner, storage, directory, uuidGenerator{}, defaultTimeSource{}, logger)
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, directory *routing.Directory, idGen IDGenerator, timeSrc TimeSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		directory:   directory,
		idGenerator: idGen,
		timeSource:  timeSrc,
		logger:      logger,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename keeps alphanumerics, spaces, hyphens and underscores in
// the base name and truncates it to 50 characters
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if ext != "" {
		ext = "." + unsafeFilenameChars.ReplaceAllString(ext[1:], "")
	}
	if ext == "." {
		ext = ""
	}
	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(filenameSpaces.ReplaceAllString(base, " "))
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "attachment"
	}
	return base + ext
}

// uniqueName suffixes name until no attachment in taken uses it
func uniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Upload is one file submitted with a new message
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewMessage is the input to CreateMessage
type NewMessage struct {
	Subject     string
	From        string
	Body        string
	ReceivedAt  time.Time
	Attachments []Upload
}

// CreateMessage stores the uploads under <id>/<filename> and registers a
// message whose attachments are all pending extraction
func (s *Service) CreateMessage(ctx context.Context, in NewMessage) (*Message, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()
	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = now
	}

	msg := &Message{
		ID:          id,
		Subject:     in.Subject,
		From:        in.From,
		Body:        in.Body,
		ReceivedAt:  in.ReceivedAt,
		Status:      StatusNew,
		Attachments: make([]Attachment, 0, len(in.Attachments)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	taken := make(map[string]bool, len(in.Attachments))
	saved := make([]BlobRef, 0, len(in.Attachments))
	cleanup := func() {
		for _, ref := range saved {
			if err := s.storage.Delete(ref); err != nil {
				s.logger.Warn("Failed to delete blob", "blob", ref.String(), "error", err)
			}
		}
	}

	for _, up := range in.Attachments {
		name := uniqueName(sanitizeFilename(up.Filename), taken)
		taken[name] = true

		blobPath := path.Join(id, name)
		ref, err := s.storage.Resolve(blobPath)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("resolving blob for %s: %w", name, err)
		}
		if err := s.storage.Save(ref, up.Data); err != nil {
			cleanup()
			return nil, fmt.Errorf("saving attachment %s: %w", name, err)
		}
		saved = append(saved, ref)

		msg.Attachments = append(msg.Attachments, Attachment{
			Name:        name,
			ContentType: normalizeContentType(up.ContentType, name),
			BlobPath:    &blobPath,
			OCR:         extraction.OCRResult{Status: extraction.StatusPending},
		})
	}

	if err := s.db.SaveMessage(msg); err != nil {
		cleanup()
		return nil, fmt.Errorf("saving message: %w", err)
	}

	s.logger.Info("Registered message", "message_id", id, "attachments", len(msg.Attachments))
	return msg, nil
}

// normalizeContentType falls back to the file extension when the client
// sent no usable type
func normalizeContentType(contentType, filename string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		ct, _, _ = strings.Cut(byExt, ";")
		return ct
	}
	return "application/octet-stream"
}

// GetMessage retrieves a message by ID
func (s *Service) GetMessage(ctx context.Context, id string) (*Message, error) {
	msg, err := s.db.GetMessage(id)
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}
	return msg, nil
}

// ListMessages returns messages matching filter, newest first
func (s *Service) ListMessages(ctx context.Context, filter ListFilter) ([]*Message, error) {
	if filter.Status != "" && filter.Status != StatusNew && filter.Status != StatusCategorized {
		return nil, fmt.Errorf("%w: %q (supported: new, categorized)", ErrInvalidStatus, filter.Status)
	}

	all, err := s.db.ListMessages()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	messages := make([]*Message, 0, len(all))
	for _, m := range all {
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.AssignedAgent != "" && m.AssignedAgent != filter.AssignedAgent {
			continue
		}
		messages = append(messages, m)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.After(messages[j].ReceivedAt)
	})
	return messages, nil
}

// DeleteMessage removes a message and its stored attachments
func (s *Service) DeleteMessage(ctx context.Context, id string) error {
	msg, err := s.db.GetMessage(id)
	if err != nil {
		return fmt.Errorf("getting message for deletion: %w", err)
	}

	for _, att := range msg.Attachments {
		if att.BlobPath == nil {
			continue
		}
		ref, err := s.storage.Resolve(*att.BlobPath)
		if err == nil {
			err = s.storage.Delete(ref)
		}
		if err != nil {
			s.logger.Warn("Failed to delete attachment", "message_id", id, "attachment", att.Name, "error", err)
		}
	}

	if err := s.db.DeleteMessage(id); err != nil {
		return fmt.Errorf("deleting message from database: %w", err)
	}
	return nil
}

// GetAttachment returns stored bytes and a content type for a blob
func (s *Service) GetAttachment(ctx context.Context, ref BlobRef) ([]byte, string, error) {
	data, err := s.storage.Get(ref)
	if err != nil {
		return nil, "", fmt.Errorf("getting attachment %s: %w", ref, err)
	}
	contentType := mime.TypeByExtension(path.Ext(ref.Blob))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrMessageNotFound) || errors.Is(err, ErrBlobNotFound)
}
