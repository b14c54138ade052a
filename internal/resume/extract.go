// Package resume turns an uploaded resume into lowercased plain text for
// skill detection.
package resume

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"

	"careermatch/internal/errors"
)

// DefaultMaxSize caps resume uploads.
const DefaultMaxSize int64 = 5 * 1024 * 1024

// Format is the detected resume format.
type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
)

var extensionFormats = map[string]Format{
	".txt":  FormatText,
	".text": FormatText,
	".md":   FormatText,
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".html": FormatHTML,
	".htm":  FormatHTML,
}

// SupportedExtensions lists accepted file extensions.
func SupportedExtensions() []string {
	return []string{".txt", ".text", ".md", ".pdf", ".docx", ".html", ".htm"}
}

// FormatFor maps a file name to its format.
func FormatFor(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}
	return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported resume format %q (supported: %s)", ext, strings.Join(SupportedExtensions(), ", ")), nil)
}

// Document is an extracted resume.
type Document struct {
	Name    string `json:"name"`
	Format  Format `json:"format"`
	Text    string `json:"text"`
	Pages   int    `json:"pages,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Extractor reads resumes from disk or memory.
type Extractor struct {
	maxSize int64
	logger  *errors.Logger
}

func NewExtractor(maxSize int64, logger *errors.Logger) *Extractor {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Extractor{maxSize: maxSize, logger: logger}
}

// ExtractFile reads path. A missing or oversized file is an error; a file
// that cannot be parsed yields a Document with empty text and a warning.
func (e *Extractor) ExtractFile(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "resume file not found", err).WithContext("path", path)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot access resume file", err).WithContext("path", path)
	}
	if info.Size() > e.maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("resume file too large: %d bytes (max %d)", info.Size(), e.maxSize), nil)
	}

	if format == FormatPDF {
		doc := &Document{Name: filepath.Base(path), Format: format}
		text, pages, err := extractPDF(path)
		e.finish(doc, text, err)
		doc.Pages = pages
		return doc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read resume file", err).WithContext("path", path)
	}
	return e.Extract(filepath.Base(path), data)
}

// Extract converts in-memory resume bytes. PDFs are staged through a
// temporary file because the PDF reader needs random access by path.
func (e *Extractor) Extract(name string, data []byte) (*Document, error) {
	format, err := FormatFor(name)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > e.maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("resume too large: %d bytes (max %d)", len(data), e.maxSize), nil)
	}

	doc := &Document{Name: name, Format: format}
	var text string
	switch format {
	case FormatText:
		text = decodeText(data)
	case FormatHTML:
		text, err = htmltomarkdown.ConvertString(decodeText(data))
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatPDF:
		var pages int
		text, pages, err = extractPDFBytes(data)
		doc.Pages = pages
	}
	e.finish(doc, text, err)
	return doc, nil
}

func (e *Extractor) finish(doc *Document, text string, err error) {
	if err != nil {
		doc.Warning = fmt.Sprintf("could not read %s resume: %v", doc.Format, err)
		if e.logger != nil {
			e.logger.Warn("Resume extraction failed, continuing with empty text",
				"name", doc.Name, "format", doc.Format, "error", err)
		}
		return
	}
	doc.Text = strings.ToLower(strings.TrimSpace(text))
	if doc.Text == "" {
		doc.Warning = "resume contained no readable text"
	}
}

// decodeText returns UTF-8 input as is and decodes anything else as
// ISO-8859-1.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, nil))
	}
	return string(decoded)
}

func extractPDF(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String(), total, nil
}

func extractPDFBytes(data []byte) (string, int, error) {
	tmp, err := os.CreateTemp("", "careermatch-resume-*.pdf")
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}
	return extractPDF(tmp.Name())
}
