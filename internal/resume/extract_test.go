package resume

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careermatch/internal/errors"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"cv.txt", FormatText, false},
		{"CV.MD", FormatText, false},
		{"resume.pdf", FormatPDF, false},
		{"resume.docx", FormatDOCX, false},
		{"page.htm", FormatHTML, false},
		{"resume.doc", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFor(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractText(t *testing.T) {
	e := NewExtractor(0, nil)

	doc, err := e.Extract("cv.txt", []byte("  Skilled in PYTHON and SQL \n"))
	require.NoError(t, err)
	assert.Equal(t, "skilled in python and sql", doc.Text)
	assert.Empty(t, doc.Warning)

	doc, err = e.Extract("cv.txt", []byte("Caf\xe9 manager, Excel"))
	require.NoError(t, err)
	assert.Equal(t, "café manager, excel", doc.Text)
}

func TestExtractHTML(t *testing.T) {
	e := NewExtractor(0, nil)
	doc, err := e.Extract("cv.html", []byte("<html><body><h1>Jane</h1><p>Knows <b>Docker</b> and Go</p></body></html>"))
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "docker")
	assert.Contains(t, doc.Text, "jane")
	assert.NotContains(t, doc.Text, "<p>")
}

func TestExtractDOCX(t *testing.T) {
	xmlBody := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Data Analyst</w:t></w:r></w:p>
<w:p><w:r><w:t>Python</w:t></w:r><w:r><w:tab/><w:t>Tableau</w:t></w:r></w:p>
</w:body>
</w:document>`

	e := NewExtractor(0, nil)
	doc, err := e.Extract("cv.docx", buildDOCX(t, xmlBody))
	require.NoError(t, err)
	assert.Equal(t, "data analyst\npython\ttableau", doc.Text)
}

func TestExtractUnreadableYieldsWarning(t *testing.T) {
	e := NewExtractor(0, nil)

	doc, err := e.Extract("cv.docx", []byte("not a zip"))
	require.NoError(t, err)
	assert.Empty(t, doc.Text)
	assert.NotEmpty(t, doc.Warning)

	doc, err = e.Extract("cv.pdf", []byte("%PDF-garbage"))
	require.NoError(t, err)
	assert.Empty(t, doc.Text)
	assert.NotEmpty(t, doc.Warning)

	doc, err = e.Extract("cv.txt", []byte("   "))
	require.NoError(t, err)
	assert.Equal(t, "resume contained no readable text", doc.Warning)
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.md")
	require.NoError(t, os.WriteFile(path, []byte("# Me\nKubernetes"), 0o644))

	e := NewExtractor(0, nil)
	doc, err := e.ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cv.md", doc.Name)
	assert.Contains(t, doc.Text, "kubernetes")

	_, err = e.ExtractFile(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestExtractSizeLimit(t *testing.T) {
	e := NewExtractor(10, nil)
	_, err := e.Extract("cv.txt", []byte(strings.Repeat("x", 11)))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 11)), 0o644))
	_, err = e.ExtractFile(path)
	assert.Error(t, err)
}
