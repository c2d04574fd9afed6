package mime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	ole := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 512)...)

	tests := []struct {
		name    string
		body    []byte
		wantExt string
		wantMT  string
	}{
		{
			name:    "pdf",
			body:    []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"),
			wantExt: ".pdf",
			wantMT:  "application/pdf",
		},
		{
			name:    "html",
			body:    []byte("<!DOCTYPE html><html><head><title>x</title></head><body>opinion</body></html>"),
			wantExt: ".html",
			wantMT:  "text/html",
		},
		{
			name:    "bare ole container becomes msword",
			body:    ole,
			wantExt: ".doc",
			wantMT:  MSWord,
		},
		{
			name:    "unknown binary becomes wordperfect",
			body:    []byte{0xFF, 0x57, 0x50, 0x43, 0x10, 0x00, 0x00, 0x00, 0x01, 0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			wantExt: ".wpd",
			wantMT:  WordPerfect,
		},
	}
	c := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := c.Classify(tc.body)
			require.Equal(t, tc.wantExt, got.Extension)
			require.Equal(t, tc.wantMT, got.MIME)
		})
	}
}

func TestIsHTML(t *testing.T) {
	t.Parallel()

	require.True(t, IsHTML([]byte(`<html><head><meta http-equiv="refresh" content="0; url=/x"></head></html>`)))
	require.False(t, IsHTML([]byte("%PDF-1.7\n")))
}
