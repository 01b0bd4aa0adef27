package attest

import (
	"errors"
	"fmt"

	"madeproof-backend/internal/securebuf"
	"madeproof-backend/internal/signing"
)

var (
	// ErrInputRejected covers structural failures detected before fingerprinting.
	ErrInputRejected = errors.New("input rejected")
	// ErrNoFile is returned when the request carries no document.
	ErrNoFile = fmt.Errorf("%w: no file uploaded", ErrInputRejected)
	// ErrTooLarge is returned when the document exceeds the size limit.
	ErrTooLarge = fmt.Errorf("%w: file too large", ErrInputRejected)
	// ErrUnsupportedContentType is returned when the request is not a multipart upload.
	ErrUnsupportedContentType = fmt.Errorf("%w: expected multipart/form-data", ErrInputRejected)

	// ErrKeyNotConfigured is returned when no signing keys are provisioned.
	ErrKeyNotConfigured = signing.ErrKeyNotConfigured
	// ErrWipeFailed is returned when the document could not be destroyed. No receipt is
	// issued in that case.
	ErrWipeFailed = securebuf.ErrWipeFailed
)
