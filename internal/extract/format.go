package extract

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
)

// Format identifies the back-end a document is routed to.
type Format int

const (
	Unknown Format = iota
	PDF
	DOCX
	Image
)

func (f Format) String() string {
	switch f {
	case PDF:
		return "pdf"
	case DOCX:
		return "docx"
	case Image:
		return "image"
	default:
		return "unknown"
	}
}

// Resolve picks the format from the lowercase filename extension, falling back to the
// declared MIME type when the extension is absent or unrecognized.
func Resolve(fileName string, mimeType string, data []byte) Format {
	if f := fromExtension(fileName); f != Unknown {
		return f
	}
	return fromMIME(normalizeMimeType(mimeType, data))
}

func fromExtension(fileName string) Format {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(fileName)), ".")) {
	case "pdf":
		return PDF
	case "docx":
		return DOCX
	case "jpg", "jpeg", "png":
		return Image
	default:
		return Unknown
	}
}

func fromMIME(mimeType string) Format {
	switch mimeType {
	case mimePDF:
		return PDF
	case mimeDOCX:
		return DOCX
	case mimeJPEG, "image/jpg", "image/pjpeg", mimePNG:
		return Image
	default:
		return Unknown
	}
}

func normalizeMimeType(mimeType string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "application/zip" {
		return clean
	}
	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}
	return clean
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return mimeDOCX
		}
	}
	return ""
}
