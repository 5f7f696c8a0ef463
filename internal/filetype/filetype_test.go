package filetype

import (
	"testing"
)

func TestDetect(t *testing.T) {
	zipSig := []byte("PK\x03\x04rest-of-archive")
	oleSig := []byte{0xd0, 0xcf, 0x11, 0xe0, 0x00, 0x00}

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantMime string
		wantExt  string
	}{
		{"pdf by extension", "report.pdf", []byte("irrelevant"), MimePDF, ".pdf"},
		{"docx by extension", "notes.docx", zipSig, MimeDocx, ".docx"},
		{"txt by extension", "readme.txt", []byte("hello"), MimeText, ".txt"},
		{"pdf by magic bytes", "mystery", []byte("%PDF-1.7 ..."), MimePDF, ".pdf"},
		{"zip with docx hint", "report.docx.bak", zipSig, MimeOctetStream, ".bak"},
		{"zip without extension stays unresolved", "archive", zipSig, MimeOctetStream, ""},
		{"ole legacy doc", "old.doc", oleSig, MimeDoc, ".doc"},
		{"utf8 text without extension", "LICENSE", []byte("plain text content"), MimeText, ".txt"},
		{"binary blob", "blob", []byte{0xff, 0xfe, 0x00, 0x01}, MimeOctetStream, ""},
		{"markdown", "doc.md", []byte("# title"), MimeMarkdown, ".md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, ext := Detect(tt.filename, tt.content)
			if mime != tt.wantMime {
				t.Errorf("Detect() mime = %q, want %q", mime, tt.wantMime)
			}
			if ext != tt.wantExt {
				t.Errorf("Detect() ext = %q, want %q", ext, tt.wantExt)
			}
		})
	}
}

func TestDetect_NeverFails(t *testing.T) {
	// Whatever the input, Detect returns a usable pair.
	mime, _ := Detect("", nil)
	if mime == "" {
		t.Error("Detect() returned empty mime type")
	}
}
