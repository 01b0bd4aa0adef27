package ocr

import "errors"

// DefaultLanguage is used when no OCR language is configured.
const DefaultLanguage = "eng"

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
var ErrOCRNotEnabled = errors.New("ocr support not enabled; rebuild with -tags ocr")
