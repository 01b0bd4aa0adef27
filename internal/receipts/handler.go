// Package receipts exposes the attestation pipeline over HTTP.
package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"madeproof-backend/internal/attest"
	"madeproof-backend/internal/extract"
	"madeproof-backend/internal/receipt"
	"madeproof-backend/internal/shared/server/respond"
	"madeproof-backend/internal/shared/util"
	"madeproof-backend/internal/signing"
)

const (
	fileField         = "file"
	publicKeyPath     = "/api/public-key"
	multipartOverhead = 1 << 20
	maxVerifyBody     = 64 << 10
)

// Handler wires HTTP handlers to the attestation service.
type Handler struct {
	Svc *attest.Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *attest.Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the upload, public key and verify routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/public-key", h.publicKey)
	rg.POST("/verify", h.verify)
}

type uploadResponse struct {
	OK              bool            `json:"ok"`
	Name            string          `json:"name"`
	MIME            string          `json:"mime"`
	SHA256          string          `json:"sha256"`
	StartedAt       string          `json:"started_at"`
	DeletedAt       string          `json:"deleted_at"`
	Meta            extract.Meta    `json:"meta"`
	Text            string          `json:"text"`
	DeletionReceipt json.RawMessage `json:"deletion_receipt"`
	SignatureBase64 string          `json:"signature_base64"`
	VerifyWith      string          `json:"verify_with"`
}

func (h *Handler) upload(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		h.fail(c, attest.ErrUnsupportedContentType)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.bodyLimit())
	reader, err := c.Request.MultipartReader()
	if err != nil {
		h.fail(c, attest.ErrUnsupportedContentType)
		return
	}
	part, err := nextFilePart(reader)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer part.Close()

	att, err := h.Svc.Process(c.Request.Context(), attest.Document{
		Name: util.DisplayName(part.FileName(), ""),
		MIME: strings.TrimSpace(part.Header.Get("Content-Type")),
		Body: part,
	})
	c.Set("statusTransition", transition(att.States))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("sha256", att.SHA256)

	respond.Verbatim(c, http.StatusOK, uploadResponse{
		OK:              true,
		Name:            att.Name,
		MIME:            att.MIME,
		SHA256:          att.SHA256,
		StartedAt:       att.Receipt.Process.StartedAt,
		DeletedAt:       att.Receipt.Process.DeletedAt,
		Meta:            att.Meta,
		Text:            att.Text,
		DeletionReceipt: json.RawMessage(att.Canonical),
		SignatureBase64: att.Signature,
		VerifyWith:      publicKeyPath,
	})
}

func (h *Handler) publicKey(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	pem, err := h.Svc.Signer.PublicKeyPEM()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(pem))
}

type verifyRequest struct {
	Receipt         json.RawMessage `json:"receipt"`
	SignatureBase64 string          `json:"signature_base64"`
	PublicKey       string          `json:"public_key"`
}

type verifyResponse struct {
	OK        bool   `json:"ok"`
	Valid     bool   `json:"valid"`
	DeletedAt string `json:"deleted_at,omitempty"`
}

func (h *Handler) verify(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxVerifyBody)

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if len(req.Receipt) == 0 || strings.TrimSpace(req.SignatureBase64) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "receipt and signature_base64 are required", nil)
		return
	}

	raw := []byte(req.Receipt)
	// Receipts may also arrive as the JSON string they were copied from.
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = []byte(asString)
	}
	r, err := receipt.Parse(raw)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	pubPEM := strings.TrimSpace(req.PublicKey)
	if pubPEM == "" {
		pubPEM, err = h.Svc.Signer.PublicKeyPEM()
		if err != nil {
			h.fail(c, err)
			return
		}
	}

	valid, err := signing.Verify(r, strings.TrimSpace(req.SignatureBase64), pubPEM)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	resp := verifyResponse{OK: true, Valid: valid}
	if valid {
		resp.DeletedAt = r.Process.DeletedAt
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, attest.ErrWipeFailed):
		respond.Error(c, http.StatusInternalServerError, "wipe_failed", "Document could not be destroyed; no receipt issued", nil)
	case errors.Is(err, attest.ErrKeyNotConfigured):
		respond.Error(c, http.StatusInternalServerError, "key_not_configured", "Signing keys are not configured", nil)
	case errors.Is(err, attest.ErrTooLarge), errors.As(err, &maxErr):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "File too large", gin.H{"max_bytes": h.maxBytes()})
	case errors.Is(err, attest.ErrUnsupportedContentType):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error(), nil)
	case errors.Is(err, attest.ErrInputRejected):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "canceled", "Request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to process document", nil)
	}
}

func (h *Handler) maxBytes() int64 {
	if h.Svc.MaxBytes > 0 {
		return h.Svc.MaxBytes
	}
	return attest.DefaultMaxBytes
}

func (h *Handler) bodyLimit() int64 {
	return h.maxBytes() + multipartOverhead
}

// nextFilePart skips form fields until it reaches the file part. Skipped parts are
// discarded unread beyond what the multipart reader buffers.
func nextFilePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, attest.ErrNoFile
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, attest.ErrTooLarge
			}
			return nil, attest.ErrNoFile
		}
		if part.FormName() == fileField && part.FileName() != "" {
			return part, nil
		}
		_ = part.Close()
	}
}

func transition(states []attest.State) string {
	if len(states) == 0 {
		return ""
	}
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, "->")
}
