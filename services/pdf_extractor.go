package services

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrNotPDF          = errors.New("file is not a PDF document")
	ErrInsufficientPDF = errors.New("insufficient text extracted from PDF")
)

// minExtractedChars below which a PDF is treated as scanned or empty
const minExtractedChars = 50

// PDFExtractor handles PDF text extraction using ledongthuc/pdf
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// sanitizePDF truncates trailing garbage after the last %%EOF marker
func sanitizePDF(content []byte) []byte {
	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)
	if lastEOF == -1 {
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)
	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}
	if extra := len(content) - pdfEnd; extra > 10 {
		slog.Debug("removing trailing bytes after EOF marker", "bytes", extra)
		return content[:pdfEnd]
	}
	return content
}

// ExtractText extracts text from PDF bytes, row by row per page
func (p *PDFExtractor) ExtractText(content []byte) (string, error) {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return "", ErrNotPDF
	}
	content = sanitizePDF(content)

	pdfReader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	numPages := pdfReader.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("%w: PDF has no pages", ErrInsufficientPDF)
	}

	var textBuilder strings.Builder
	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			// fall back to plain text when row extraction fails
			text, plainErr := page.GetPlainText(nil)
			if plainErr != nil {
				slog.Debug("pdf page extraction failed", "page", i, "error", plainErr)
				continue
			}
			textBuilder.WriteString(text)
			textBuilder.WriteString("\n")
			continue
		}

		for _, row := range rows {
			var rowText strings.Builder
			for _, word := range row.Content {
				rowText.WriteString(word.S)
			}
			if line := strings.TrimSpace(rowText.String()); line != "" {
				textBuilder.WriteString(line)
				textBuilder.WriteString("\n")
			}
		}
		textBuilder.WriteString("\n")
	}

	extracted := strings.TrimSpace(textBuilder.String())
	if len(extracted) < minExtractedChars {
		return "", fmt.Errorf("%w: only %d characters, the PDF may be image-based", ErrInsufficientPDF, len(extracted))
	}

	slog.Debug("extracted PDF text", "chars", len(extracted), "pages", numPages)
	return extracted, nil
}
