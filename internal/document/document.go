package document

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	ContentTypePDF    = "application/pdf"
	contentTypeBinary = "application/octet-stream"
)

// Document is one uploaded file waiting to be screened.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the document size in bytes.
func (d Document) Size() int {
	return len(d.Data)
}

// MediaType returns the declared content type without parameters, lowercased.
func (d Document) MediaType() string {
	declared := strings.TrimSpace(d.ContentType)
	if declared == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(declared)
	}
	return mediaType
}

// DetectedType returns the declared media type, or a sniffed one when the
// declaration is missing or generic.
func (d Document) DetectedType() string {
	declared := d.MediaType()
	if declared != "" && declared != contentTypeBinary {
		return declared
	}

	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(d.Data))
	if sniffed == contentTypeBinary && strings.EqualFold(filepath.Ext(d.Name), ".pdf") {
		return ContentTypePDF
	}
	return sniffed
}
