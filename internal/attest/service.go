// Package attest runs the ephemeral pipeline: take ownership of the document, fingerprint
// it, extract text, wipe it, then build and sign the deletion receipt.
package attest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"madeproof-backend/internal/extract"
	"madeproof-backend/internal/fingerprint"
	"madeproof-backend/internal/receipt"
	"madeproof-backend/internal/securebuf"
	"madeproof-backend/internal/shared/metrics"
	"madeproof-backend/internal/shared/telemetry"
	"madeproof-backend/internal/signing"
)

const (
	DefaultMaxBytes     = 10 << 20 // 10MB
	DefaultExcerptChars = 10000
	defaultMIME         = "application/octet-stream"
	defaultName         = "upload"
)

// State is a step of the per-request state machine. No state is revisited.
type State string

const (
	StateReceived         State = "received"
	StateFingerprinted    State = "fingerprinted"
	StateExtracted        State = "extracted"
	StateExtractionFailed State = "extraction_failed"
	StateWiped            State = "wiped"
	StateAttested         State = "attested"
	StateResponded        State = "responded"
	StateRejected         State = "rejected"
	StateFailed           State = "failed"
)

// Document is one inbound upload. Body is read once and never retained.
type Document struct {
	Name string
	MIME string
	Body io.Reader
}

// Attestation is what the caller gets back. It holds no raw document bytes.
type Attestation struct {
	Name      string
	MIME      string
	SHA256    string
	Size      int64
	StartedAt time.Time
	DeletedAt time.Time
	Meta      extract.Meta
	Text      string
	Receipt   receipt.DeletionReceipt
	Canonical []byte
	Signature string
	States    []State
}

// Extractor dispatches bytes to an extraction back-end and never fails.
type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName string, mimeType string) extract.Result
}

// AcquireFunc moves a document stream into a secure buffer, enforcing limit.
type AcquireFunc func(r io.Reader, limit int64) (*securebuf.Buffer, error)

// InMemory keeps uploads in process memory only.
func InMemory() AcquireFunc {
	return securebuf.ReadAll
}

// SpoolTo streams uploads through a temp file in dir that is wiped on release.
func SpoolTo(dir string) AcquireFunc {
	return func(r io.Reader, limit int64) (*securebuf.Buffer, error) {
		return securebuf.Spool(r, dir, limit)
	}
}

// Service processes documents. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	Extractor    Extractor
	Signer       *signing.Signer
	Acquire      AcquireFunc
	MaxBytes     int64
	ExcerptChars int
	Now          func() time.Time
}

// Process runs one document through the pipeline. The buffer is released on every exit
// path, including panics. A release failure discards the receipt and returns ErrWipeFailed.
func (s *Service) Process(ctx context.Context, doc Document) (att Attestation, err error) {
	states := []State{StateReceived}
	defer func() {
		if err != nil {
			terminal := StateFailed
			if errors.Is(err, ErrInputRejected) {
				terminal = StateRejected
			}
			att = Attestation{States: append(states, terminal)}
			recordFailure(err)
		}
	}()

	if err := s.Signer.Ready(); err != nil {
		return Attestation{}, err
	}
	if doc.Body == nil {
		return Attestation{}, ErrNoFile
	}

	name := doc.Name
	if name == "" {
		name = defaultName
	}
	mimeType := doc.MIME
	if mimeType == "" {
		mimeType = defaultMIME
	}

	started := s.now()
	buf, err := s.acquire(doc.Body)
	if err != nil {
		return Attestation{}, err
	}
	released := false
	defer func() {
		if released {
			return
		}
		if rerr := buf.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return Attestation{}, err
	}

	data := buf.Bytes()
	size := int64(len(data))
	sum := fingerprint.Of(data)
	states = append(states, StateFingerprinted)

	res := s.Extractor.Extract(ctx, data, name, mimeType)
	if res.Meta.Degraded {
		states = append(states, StateExtractionFailed)
		metrics.IncExtractionDegraded()
		telemetry.Warn("attest.extraction_degraded", map[string]any{
			"format": res.Format.String(),
			"mime":   mimeType,
			"sha256": sum.Hex(),
			"err":    res.Meta.Error,
		})
	} else {
		states = append(states, StateExtracted)
	}
	released = true
	if err := buf.Release(); err != nil {
		return Attestation{}, err
	}
	deleted := s.now()
	states = append(states, StateWiped)

	r, err := receipt.Build(
		receipt.FileDescriptor{Name: name, MIME: mimeType, SHA256: sum.Hex(), Size: size},
		receipt.ProcessWindow{StartedAt: started, DeletedAt: deleted},
		receipt.ExtractionDescriptor{Pages: res.Meta.Pages, OCR: res.Meta.OCR},
	)
	if err != nil {
		return Attestation{}, fmt.Errorf("build receipt: %w", err)
	}
	canonical, err := receipt.Canonical(r)
	if err != nil {
		return Attestation{}, err
	}
	sig, err := s.Signer.SignCanonical(canonical)
	if err != nil {
		return Attestation{}, err
	}
	states = append(states, StateAttested)

	metrics.IncReceiptsIssued()
	metrics.ObservePipelineDurationMs(float64(deleted.Sub(started).Microseconds()) / 1000.0)

	return Attestation{
		Name:      name,
		MIME:      mimeType,
		SHA256:    sum.Hex(),
		Size:      size,
		StartedAt: started,
		DeletedAt: deleted,
		Meta:      res.Meta,
		Text:      excerpt(res.Text, s.excerptChars()),
		Receipt:   r,
		Canonical: canonical,
		Signature: sig,
		States:    append(states, StateResponded),
	}, nil
}

func (s *Service) acquire(r io.Reader) (*securebuf.Buffer, error) {
	acquire := s.Acquire
	if acquire == nil {
		acquire = InMemory()
	}
	buf, err := acquire(r, s.maxBytes())
	if err != nil {
		// A partial spool that could not be wiped outranks the rejection.
		if errors.Is(err, securebuf.ErrWipeFailed) {
			return nil, err
		}
		if errors.Is(err, securebuf.ErrTooLarge) {
			return nil, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, s.maxBytes())
		}
		return nil, fmt.Errorf("%w: %w", ErrInputRejected, err)
	}
	return buf, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) maxBytes() int64 {
	if s.MaxBytes > 0 {
		return s.MaxBytes
	}
	return DefaultMaxBytes
}

func (s *Service) excerptChars() int {
	if s.ExcerptChars > 0 {
		return s.ExcerptChars
	}
	return DefaultExcerptChars
}

func excerpt(text string, limit int) string {
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}

func recordFailure(err error) {
	switch {
	case errors.Is(err, ErrWipeFailed):
		metrics.IncWipeFailed()
		telemetry.Error("attest.wipe_failed", map[string]any{"err": err.Error()})
	case errors.Is(err, ErrKeyNotConfigured):
		metrics.IncKeyNotConfigured()
	case errors.Is(err, ErrInputRejected):
		metrics.IncRequestsRejected()
	}
}
