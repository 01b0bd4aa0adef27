// Package receipt builds deletion receipts and their canonical byte form.
//
// Canonical form: compact JSON, UTF-8, no HTML escaping, no trailing newline, keys in this
// fixed order:
//
//	{"kind","version","file":{"name","mime","sha256","size"},
//	 "process":{"started_at","deleted_at"},"extraction":{"pages","ocr"}}
//
// "size" is omitted when unknown, "pages" is null when unknown. Timestamps are UTC with
// millisecond precision, e.g. 2026-01-02T03:04:05.678Z. These are exactly the bytes that
// get signed.
package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	// Kind tags every receipt.
	Kind = "MadeProofDeletionReceipt"
	// Version is the current receipt schema version.
	Version = 1
	// TimeLayout formats receipt timestamps.
	TimeLayout = "2006-01-02T15:04:05.000Z"
)

var (
	ErrInvalidReceipt = errors.New("invalid receipt")

	sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// DeletionReceipt is the attested record. Field order defines the canonical form.
type DeletionReceipt struct {
	Kind       string     `json:"kind"`
	Version    int        `json:"version"`
	File       File       `json:"file"`
	Process    Process    `json:"process"`
	Extraction Extraction `json:"extraction"`
}

// File describes the destroyed document.
type File struct {
	Name   string `json:"name"`
	MIME   string `json:"mime"`
	SHA256 string `json:"sha256"`
	Size   *int64 `json:"size,omitempty"`
}

// Process is the processing window.
type Process struct {
	StartedAt string `json:"started_at"`
	DeletedAt string `json:"deleted_at"`
}

// Extraction summarizes what extraction found.
type Extraction struct {
	Pages *int `json:"pages"`
	OCR   bool `json:"ocr"`
}

// FileDescriptor is the input describing the document.
type FileDescriptor struct {
	Name   string
	MIME   string
	SHA256 string
	Size   int64
}

// ProcessWindow is the input time window. DeletedAt must be taken after the wipe.
type ProcessWindow struct {
	StartedAt time.Time
	DeletedAt time.Time
}

// ExtractionDescriptor is the input extraction summary.
type ExtractionDescriptor struct {
	Pages *int
	OCR   bool
}

// Build assembles a receipt.
func Build(file FileDescriptor, window ProcessWindow, ext ExtractionDescriptor) (DeletionReceipt, error) {
	if !sha256Hex.MatchString(file.SHA256) {
		return DeletionReceipt{}, fmt.Errorf("%w: sha256 must be 64 lowercase hex characters", ErrInvalidReceipt)
	}
	if window.StartedAt.IsZero() || window.DeletedAt.IsZero() {
		return DeletionReceipt{}, fmt.Errorf("%w: process window incomplete", ErrInvalidReceipt)
	}
	started := window.StartedAt.UTC().Truncate(time.Millisecond)
	deleted := window.DeletedAt.UTC().Truncate(time.Millisecond)
	if deleted.Before(started) {
		return DeletionReceipt{}, fmt.Errorf("%w: deleted_at precedes started_at", ErrInvalidReceipt)
	}
	if file.Size < 0 {
		return DeletionReceipt{}, fmt.Errorf("%w: negative size", ErrInvalidReceipt)
	}

	size := file.Size
	var pages *int
	if ext.Pages != nil {
		p := *ext.Pages
		pages = &p
	}
	return DeletionReceipt{
		Kind:    Kind,
		Version: Version,
		File: File{
			Name:   file.Name,
			MIME:   file.MIME,
			SHA256: file.SHA256,
			Size:   &size,
		},
		Process: Process{
			StartedAt: started.Format(TimeLayout),
			DeletedAt: deleted.Format(TimeLayout),
		},
		Extraction: Extraction{Pages: pages, OCR: ext.OCR},
	}, nil
}

// Canonical returns the bytes that are signed and verified.
func Canonical(r DeletionReceipt) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("canonicalize receipt: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Parse decodes a receipt produced by this package or an equivalent implementation.
// Unknown fields are rejected so they cannot ride along unsigned.
func Parse(data []byte) (DeletionReceipt, error) {
	var r DeletionReceipt
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return DeletionReceipt{}, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	if dec.More() {
		return DeletionReceipt{}, fmt.Errorf("%w: trailing data", ErrInvalidReceipt)
	}
	if r.Kind != Kind {
		return DeletionReceipt{}, fmt.Errorf("%w: unexpected kind %q", ErrInvalidReceipt, r.Kind)
	}
	if r.Version != Version {
		return DeletionReceipt{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidReceipt, r.Version)
	}
	return r, nil
}

// StartedAt parses the process start timestamp.
func (r DeletionReceipt) StartedAt() (time.Time, error) {
	return time.Parse(TimeLayout, r.Process.StartedAt)
}

// DeletedAt parses the deletion timestamp.
func (r DeletionReceipt) DeletedAt() (time.Time, error) {
	return time.Parse(TimeLayout, r.Process.DeletedAt)
}
