package utils

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// MaxPPTXSlides limits how many slides are processed per deck.
const MaxPPTXSlides = 200

// ExtractPPTXText extracts plain text from a PPTX deck, slide by slide in
// slide order. Company material often arrives as sales decks, so this gets
// the same treatment as PDF and DOCX.
func ExtractPPTXText(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	zipReader, err := zip.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PPTX: %w", err)
	}

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, file := range zipReader.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") || !strings.HasSuffix(file.Name, ".xml") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(path.Base(file.Name), "slide"), ".xml")
		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: num, file: file})
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("invalid PPTX: no slides found")
	}

	sort.Slice(slides, func(i, j int) bool {
		return slides[i].num < slides[j].num
	})
	if len(slides) > MaxPPTXSlides {
		slides = slides[:MaxPPTXSlides]
	}

	var textBuilder strings.Builder
	for _, slide := range slides {
		rc, err := slide.file.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		slideText := extractTextFromDrawingML(content)
		if slideText != "" {
			textBuilder.WriteString(slideText)
			textBuilder.WriteString("\n")
		}
		if textBuilder.Len() > MaxExtractedTextSize {
			break
		}
	}

	extracted := textBuilder.String()
	if len(extracted) > MaxExtractedTextSize {
		extracted = extracted[:MaxExtractedTextSize]
	}
	return strings.TrimSpace(extracted), nil
}

// extractTextFromDrawingML walks one slide's XML, joining text runs within a
// DrawingML paragraph (a:p) and emitting a newline per paragraph.
func extractTextFromDrawingML(xmlContent []byte) string {
	var textBuilder strings.Builder
	decoder := xml.NewDecoder(bytes.NewReader(xmlContent))

	inParagraph := false
	var paragraph strings.Builder

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" && strings.Contains(t.Name.Space, "drawingml") {
				inParagraph = true
				paragraph.Reset()
			}
		case xml.EndElement:
			if t.Name.Local == "p" && strings.Contains(t.Name.Space, "drawingml") {
				if inParagraph && paragraph.Len() > 0 {
					textBuilder.WriteString(paragraph.String())
					textBuilder.WriteString("\n")
				}
				inParagraph = false
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text != "" && inParagraph {
				if paragraph.Len() > 0 {
					paragraph.WriteString(" ")
				}
				paragraph.WriteString(text)
			}
		}
	}

	return cleanExtractedText(textBuilder.String())
}
