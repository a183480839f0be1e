package textextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        Kind
	}{
		{"txt extension", "notes.txt", "", KindText},
		{"pdf extension", "report.pdf", "", KindPDF},
		{"docx extension", "memo.docx", "", KindWord},
		{"doc extension", "memo.doc", "", KindWord},
		{"extension wins over content type", "notes.txt", "application/pdf", KindText},
		{"plain content type", "upload", "text/plain", KindText},
		{"pdf content type", "upload", "application/pdf", KindPDF},
		{"word content type", "upload", "application/msword", KindWord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := Detect(tt.filename, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestDetectUnsupported(t *testing.T) {
	_, err := Detect("archive.zip", "application/zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Detect("", "application/octet-stream")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExtractText(t *testing.T) {
	text, err := Extract([]byte("  hello world\n"), KindText)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestExtractTextDeterministic(t *testing.T) {
	data := []byte("the same bytes")

	first, err := Extract(data, KindText)
	require.NoError(t, err)
	second, err := Extract(data, KindText)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractWordNotImplemented(t *testing.T) {
	_, err := Extract([]byte("PK..."), KindWord)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWordNotImplemented)
}

func TestExtractInvalidPDF(t *testing.T) {
	_, err := Extract([]byte("not a pdf"), KindPDF)
	assert.Error(t, err)
}
