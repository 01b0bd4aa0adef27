package health

// Signer reports whether signing keys are provisioned.
type Signer interface {
	Ready() error
}

// Service encapsulates health-related checks.
type Service struct {
	signer     Signer
	ocrEnabled bool
}

// NewService constructs a new health service.
func NewService(signer Signer, ocrEnabled bool) *Service {
	return &Service{signer: signer, ocrEnabled: ocrEnabled}
}

// Status returns the health payload. The process is healthy without keys, but uploads
// fail until they are configured, so signing readiness is reported separately.
func (s *Service) Status() map[string]bool {
	signing := s.signer != nil && s.signer.Ready() == nil
	return map[string]bool{
		"ok":      true,
		"signing": signing,
		"ocr":     s.ocrEnabled,
	}
}
