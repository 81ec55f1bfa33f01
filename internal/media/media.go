// Package media stores uploaded item files on disk. Each file is owned by
// exactly one item and is addressed by a public path under Prefix.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/erazemk/sledilnik/internal/imaging"
)

// Prefix is the URL path under which owned files are served.
const Prefix = "/uploads/"

var (
	// ErrExists is returned when a file for the slug is already on disk.
	ErrExists = errors.New("media file already exists")
	// ErrInvalidPath is returned for paths outside the upload directory.
	ErrInvalidPath = errors.New("invalid media path")
	// ErrInvalidImage is returned when an upload claims to be a JPEG or PNG
	// but cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Store keeps uploaded files in a single directory.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// FileName derives the on-disk name for a slug's upload from the original
// file name: the slug plus the lowercased extension, if it is sane.
func FileName(slug, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return slug + ext
}

// Save writes the upload for slug and returns its public path. JPEG and PNG
// images are downscaled; everything else is stored as received. Save never
// overwrites an existing file.
func (s *Store) Save(slug, original string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	result, err := imaging.Process(data)
	switch {
	case err == nil:
		if result.Resized {
			slog.Info("upload downscaled", "slug", slug, "mime", result.MIME, "bytes", len(result.Data))
		}
		data = result.Data
	case errors.Is(err, imaging.ErrUnsupported):
	default:
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	name := FileName(slug, original)
	full := filepath.Join(s.Dir, name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", ErrExists
	}
	if err != nil {
		return "", fmt.Errorf("creating media file: %w", err)
	}

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("writing media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("closing media file: %w", err)
	}

	return Prefix + name, nil
}

// Resolve maps a public path to its location on disk.
func (s *Store) Resolve(publicPath string) (string, error) {
	if !strings.HasPrefix(publicPath, Prefix) {
		return "", ErrInvalidPath
	}
	name := strings.TrimPrefix(publicPath, Prefix)
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.ContainsRune(name, '\\') {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.Dir, name), nil
}

// Remove deletes the file behind publicPath. It reports whether a file was
// actually removed; a missing file is not an error.
func (s *Store) Remove(publicPath string) (bool, error) {
	full, err := s.Resolve(publicPath)
	if err != nil {
		return false, err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("removing media file: %w", err)
	}
	return true, nil
}

// Exists reports whether the file behind publicPath is on disk.
func (s *Store) Exists(publicPath string) bool {
	full, err := s.Resolve(publicPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// Handler serves owned files under Prefix. Directory listings are refused.
func (s *Store) Handler() http.Handler {
	files := http.StripPrefix(Prefix, http.FileServer(http.Dir(s.Dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.Resolve(r.URL.Path); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
