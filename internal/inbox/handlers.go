package inbox

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/receipt-inbox/internal/routing"
	"github.com/zombor/receipt-inbox/internal/schema"
)

// maxUploadSize bounds a multipart message upload
const maxUploadSize = int64(50 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

// writeError maps service errors onto status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case isNotFound(err):
		code = http.StatusNotFound
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidTicket),
		errors.Is(err, ErrInvalidLabels),
		errors.Is(err, ErrInvalidBlobRef),
		errors.Is(err, schema.ErrInvalid):
		code = http.StatusBadRequest
	}

	message := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
		message = "Internal server error"
	}
	s.writeJSON(w, code, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

// handleListMessages lists messages, optionally filtered by status or
// assigned_agent query parameters
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status:        MessageStatus(r.URL.Query().Get("status")),
		AssignedAgent: r.URL.Query().Get("assigned_agent"),
	}
	messages, err := s.service.ListMessages(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleCreateMessage registers a message from a multipart form with
// subject, from, body and any number of "file" parts
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.logger.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "Upload is too large. Maximum size is 50MB."
		}
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": errorMsg})
		return
	}

	in := NewMessage{
		Subject: r.FormValue("subject"),
		From:    r.FormValue("from"),
		Body:    r.FormValue("body"),
	}
	if received := r.FormValue("received_at"); received != "" {
		t, err := time.Parse(time.RFC3339, received)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "received_at must be RFC 3339"})
			return
		}
		in.ReceivedAt = t
	}

	for _, header := range r.MultipartForm.File["file"] {
		f, err := header.Open()
		if err != nil {
			s.writeError(w, err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.logger.Error("Error reading file data", "error", err, "filename", header.Filename)
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Error reading file. Please try again."})
			return
		}
		in.Attachments = append(in.Attachments, Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	msg, err := s.service.CreateMessage(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.service.GetMessage(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteMessage(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleProcessAttachments runs extraction over a message's attachments
// and returns the per-attachment summary
func (s *Server) handleProcessAttachments(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.ProcessAttachments(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// handleSaveEdits applies reviewer corrections. A request that targets no
// existing attachment still succeeds and reports matched false.
func (s *Server) handleSaveEdits(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	req, err := ParseEditRequest(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.service.SaveEdits(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var labels routing.Labels
	if err := json.NewDecoder(r.Body).Decode(&labels); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	msg, err := s.service.Categorize(r.Context(), r.PathValue("id"), labels)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	change, err := s.service.UpdateTicket(r.Context(), r.PathValue("id"), Ticket(strings.ToLower(req.Ticket)))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, change)
}

// handleGetAttachment proxies stored attachment bytes
func (s *Server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	ref := BlobRef{Container: r.PathValue("container"), Blob: r.PathValue("blob")}
	data, contentType, err := s.service.GetAttachment(r.Context(), ref)
	if err != nil {
		s.writeError(w, err)
		return
	}
	setCORSHeaders(w)
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportXLSX(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	w.Write(data)
}
