// Package blobs stores uploaded file content in a local directory.
package blobs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// MaxUploadSize is the default per-file limit.
const MaxUploadSize = 5 * 1024 * 1024

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrExtension   = errors.New("invalid file type")
	ErrTooLarge    = errors.New("file size exceeds limit")
	ErrNotFound    = errors.New("file not found")
)

// DocumentExtensions are accepted for user document uploads.
var DocumentExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}

// AudioExtensions are accepted for voice input and synthesized speech.
var AudioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".ogg": true, ".webm": true, ".m4a": true, ".flac": true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Dir is a flat directory of blobs addressed by generated filename.
type Dir struct {
	root    string
	maxSize int64
	now     func() time.Time
}

// Stored describes a saved blob.
type Stored struct {
	Filename string
	Size     int64
}

// New creates root if needed. maxSize <= 0 means MaxUploadSize.
func New(root string, maxSize int64) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if maxSize <= 0 {
		maxSize = MaxUploadSize
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Dir{root: abs, maxSize: maxSize, now: time.Now}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string {
	return d.root
}

// MaxSize returns the per-file limit in bytes.
func (d *Dir) MaxSize() int64 {
	return d.maxSize
}

// Save writes r under "<UTC timestamp>_<sanitized name>". The extension of
// name must be in allowed. Content beyond the size limit fails with ErrTooLarge
// and leaves nothing behind.
func (d *Dir) Save(name string, r io.Reader, allowed map[string]bool) (Stored, error) {
	clean := SanitizeName(name)
	if clean == "" {
		return Stored{}, ErrInvalidName
	}
	ext := strings.ToLower(filepath.Ext(clean))
	if !allowed[ext] {
		return Stored{}, fmt.Errorf("%w: %s", ErrExtension, ext)
	}

	filename := d.now().UTC().Format("20060102150405") + "_" + clean
	f, err := d.create(filename)
	if err != nil {
		return Stored{}, err
	}

	n, err := io.Copy(f, io.LimitReader(r, d.maxSize+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(f.Name())
		return Stored{}, fmt.Errorf("failed to write file: %w", err)
	case n > d.maxSize:
		_ = os.Remove(f.Name())
		return Stored{}, ErrTooLarge
	case closeErr != nil:
		_ = os.Remove(f.Name())
		return Stored{}, fmt.Errorf("failed to close file: %w", closeErr)
	}
	return Stored{Filename: filepath.Base(f.Name()), Size: n}, nil
}

// create opens filename exclusively, adding a counter when two uploads
// land in the same second with the same name.
func (d *Dir) create(filename string) (*os.File, error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	candidate := filename
	for i := 1; i < 100; i++ {
		f, err := os.OpenFile(filepath.Join(d.root, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create file: %w", err)
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	return nil, fmt.Errorf("failed to create file: too many collisions for %s", filename)
}

// Path resolves a stored filename to its absolute path.
func (d *Dir) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename != SanitizeName(filename) {
		return "", ErrInvalidName
	}
	return filepath.Join(d.root, filename), nil
}

// Open returns the stored blob for reading.
func (d *Dir) Open(filename string) (*os.File, error) {
	p, err := d.Path(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Remove deletes a stored blob. Removing a missing blob is not an error.
func (d *Dir) Remove(filename string) error {
	p, err := d.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SanitizeName keeps the base name of a client-supplied filename and
// replaces anything outside [A-Za-z0-9._-] with underscores.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "_" {
		return ""
	}
	return name
}
