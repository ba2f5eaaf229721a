package storage

import (
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
)

const Placeholder = "/images/placeholder.png"

var (
	ErrInvalidPath = errors.New("invalid-path")
	ErrInvalidType = errors.New("invalid-file-type")
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Disk stores uploaded files under Dir and publishes them under URL.
type Disk struct {
	Dir string
	URL string
}

func NewDisk(dir, url string) *Disk {
	return &Disk{Dir: dir, URL: strings.TrimRight(url, "/")}
}

// SaveImage writes the upload as <folder>/<uuid><ext> and returns that
// storage-relative path.
func (d *Disk) SaveImage(fh *multipart.FileHeader, folder string) (string, error) {
	if !IsImage(fh.Filename) {
		return "", ErrInvalidType
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))

	rel := path.Join(folder, uuid.Must(uuid.NewV4()).String()+ext)
	full, err := d.fullPath(rel)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(full)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(full)
		return "", err
	}

	return rel, dst.Close()
}

// Delete removes a stored file. Missing files and paths that do not live on
// this disk are ignored.
func (d *Disk) Delete(p string) error {
	if p == "" || isAbsoluteURL(p) || strings.HasPrefix(p, "/") {
		return nil
	}

	full, err := d.fullPath(p)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PublicURL resolves a stored reference for display. Absolute URLs and root-relative
// paths are returned unchanged, anything else is relative to the disk URL.
func (d *Disk) PublicURL(p string) string {
	p = strings.TrimSpace(p)
	switch {
	case p == "":
		return Placeholder
	case isAbsoluteURL(p), strings.HasPrefix(p, "/"):
		return p
	}
	return d.URL + "/" + strings.TrimLeft(p, "/")
}

func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

func (d *Disk) fullPath(rel string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(rel, `\`, "/"))
	if clean == "/" || strings.Contains(rel, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(d.Dir, filepath.FromSlash(clean)), nil
}

func isAbsoluteURL(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
