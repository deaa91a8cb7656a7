package utils

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const wordMLNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// ExtractDOCXText extracts plain text from a DOCX document.
func ExtractDOCXText(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	zipReader, err := zip.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}

	var document []byte
	for _, file := range zipReader.File {
		if file.Name == "word/document.xml" {
			rc, err := file.Open()
			if err != nil {
				return "", fmt.Errorf("failed to open document.xml: %w", err)
			}
			document, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", fmt.Errorf("failed to read document.xml: %w", err)
			}
			break
		}
	}
	if document == nil {
		return "", fmt.Errorf("invalid DOCX: missing word/document.xml")
	}

	extracted := extractTextFromWordML(document)
	if len(extracted) > MaxExtractedTextSize {
		extracted = extracted[:MaxExtractedTextSize]
	}
	return strings.TrimSpace(extracted), nil
}

// extractTextFromWordML walks the WordprocessingML token stream, collecting
// text runs and emitting a newline per paragraph.
func extractTextFromWordML(xmlContent []byte) string {
	var textBuilder strings.Builder
	decoder := xml.NewDecoder(bytes.NewReader(xmlContent))

	inText := false
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" && t.Name.Space == wordMLNamespace {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" && t.Name.Space == wordMLNamespace {
				inText = false
			}
			if t.Name.Local == "p" && t.Name.Space == wordMLNamespace {
				textBuilder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				textBuilder.Write(t)
			}
		}
	}

	return cleanExtractedText(textBuilder.String())
}
