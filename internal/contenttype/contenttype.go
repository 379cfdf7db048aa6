// Package contenttype resolves the MIME type of uploaded content.
package contenttype

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultType is used when neither sniffing nor the declared type yields
// anything useful.
const DefaultType = "application/octet-stream"

// Detect resolves the content type of data. The declared type (from the
// multipart part header) wins when it is specific; otherwise the content
// is sniffed. Parameters like "; charset=utf-8" are stripped.
func Detect(data []byte, declared string) string {
	declared = normalize(declared)
	if declared != "" && declared != DefaultType {
		return declared
	}

	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt != nil {
			return mt.String()
		}
	}

	if declared != "" {
		return declared
	}
	return DefaultType
}

// DetectFromFilename resolves a content type from the file extension
// alone, for flows where the bytes are not yet available.
func DetectFromFilename(name string) string {
	ext := ""
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		ext = strings.ToLower(name[idx:])
	}

	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".html", ".htm":
		return "text/html"
	case ".xml":
		return "application/xml"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return DefaultType
	}
}

func normalize(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return strings.ToLower(contentType)
}
