package drive

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
)

var _ adapter.DocumentTextExtractor = (*PDFExtractor)(nil)

// PDFExtractor pulls plain text out of downloaded PDF attachments. Anything
// that is not a PDF yields no text without an error; the pipeline treats
// that as a skipped attachment.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (e *PDFExtractor) Extract(path string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return "", nil
	}
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
