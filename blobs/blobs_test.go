package blobs

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func newDir(t *testing.T, maxSize int64) *Dir {
	t.Helper()
	d, err := New(t.TempDir(), maxSize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.now = func() time.Time { return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC) }
	return d
}

func TestSaveAndOpen(t *testing.T) {
	t.Parallel()
	d := newDir(t, 0)

	got, err := d.Save("passport scan.PDF", strings.NewReader("pdf-bytes"), DocumentExtensions)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got.Filename != "20250203040506_passport_scan.PDF" {
		t.Fatalf("filename = %q", got.Filename)
	}
	if got.Size != int64(len("pdf-bytes")) {
		t.Fatalf("size = %d", got.Size)
	}

	f, err := d.Open(got.Filename)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	body, _ := io.ReadAll(f)
	if string(body) != "pdf-bytes" {
		t.Fatalf("body = %q", body)
	}
}

func TestSaveSameSecondDoesNotOverwrite(t *testing.T) {
	t.Parallel()
	d := newDir(t, 0)

	a, err := d.Save("id.png", strings.NewReader("a"), DocumentExtensions)
	if err != nil {
		t.Fatalf("Save a: %v", err)
	}
	b, err := d.Save("id.png", strings.NewReader("b"), DocumentExtensions)
	if err != nil {
		t.Fatalf("Save b: %v", err)
	}
	if a.Filename == b.Filename {
		t.Fatalf("both uploads stored as %q", a.Filename)
	}
}

func TestSaveRejects(t *testing.T) {
	t.Parallel()
	d := newDir(t, 4)

	if _, err := d.Save("virus.exe", strings.NewReader("x"), DocumentExtensions); !errors.Is(err, ErrExtension) {
		t.Fatalf("extension err = %v", err)
	}
	if _, err := d.Save("...", strings.NewReader("x"), DocumentExtensions); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("name err = %v", err)
	}
	if _, err := d.Save("big.pdf", bytes.NewReader(make([]byte, 5)), DocumentExtensions); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("size err = %v", err)
	}

	entries, err := os.ReadDir(d.Root())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected uploads left %d files", len(entries))
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	t.Parallel()
	d := newDir(t, 0)

	for _, name := range []string{"../secret", "a/b.pdf", "", "..", "x y.pdf"} {
		if _, err := d.Open(name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("Open(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
	if _, err := d.Open("missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open missing err = %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"report.pdf":            "report.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\photo.jpg`: "photo.jpg",
		"my file (1).png":       "my_file_1_.png",
		".hidden.pdf":           "hidden.pdf",
		"":                      "",
	}
	for in, want := range tests {
		if got := SanitizeName(in); got != want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()
	d := newDir(t, 0)

	got, err := d.Save("card.png", strings.NewReader("png"), DocumentExtensions)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := d.Remove(got.Filename); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := d.Open(got.Filename); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open after remove err = %v", err)
	}
	if err := d.Remove(got.Filename); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if err := d.Remove("../escape.png"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("Remove traversal err = %v", err)
	}
}
