package utils

import (
	"fmt"
	"strings"
)

// ExtractDocumentText extracts plain text from an uploaded document by MIME
// type. PDF, DOCX, PPTX, and plain text are supported.
func ExtractDocumentText(data []byte, mimeType string) (string, error) {
	switch {
	case mimeType == "application/pdf":
		return ExtractPDFText(data)
	case mimeType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ExtractDOCXText(data)
	case mimeType == "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return ExtractPPTXText(data)
	case strings.HasPrefix(mimeType, "text/"):
		text := cleanExtractedText(string(data))
		if len(text) > MaxExtractedTextSize {
			text = text[:MaxExtractedTextSize]
		}
		return text, nil
	default:
		return "", fmt.Errorf("unsupported document type: %s", mimeType)
	}
}
