package storage

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/assert"
)

func fileHeader(t *testing.T, name, content string) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", name)
	assert.Equal(t, nil, err)
	part.Write([]byte(content))
	w.Close()

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	assert.Equal(t, nil, err)
	return form.File["image"][0]
}

func TestPublicURL(t *testing.T) {
	d := NewDisk(t.TempDir(), "/storage/")

	assert.Equal(t, Placeholder, d.PublicURL(""))
	assert.Equal(t, Placeholder, d.PublicURL("   "))
	assert.Equal(t, "https://cdn.example.com/a.png", d.PublicURL("https://cdn.example.com/a.png"))
	assert.Equal(t, "HTTP://cdn.example.com/a.png", d.PublicURL("HTTP://cdn.example.com/a.png"))
	assert.Equal(t, "/images/logo.png", d.PublicURL("/images/logo.png"))
	assert.Equal(t, "/storage/categories/a.png", d.PublicURL("categories/a.png"))
}

func TestSaveAndDeleteImage(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir, "/storage")

	_, err := d.SaveImage(fileHeader(t, "notes.txt", "hello"), "categories")
	assert.Equal(t, ErrInvalidType, err)

	rel, err := d.SaveImage(fileHeader(t, "Photo.PNG", "png-bytes"), "categories")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, strings.HasPrefix(rel, "categories/"))
	assert.Equal(t, ".png", filepath.Ext(rel))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.Equal(t, nil, err)
	assert.Equal(t, "png-bytes", string(data))

	assert.Equal(t, nil, d.Delete(rel))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.Equal(t, true, os.IsNotExist(err))

	// already gone, external and root-relative references are ignored
	assert.Equal(t, nil, d.Delete(rel))
	assert.Equal(t, nil, d.Delete("https://cdn.example.com/a.png"))
	assert.Equal(t, nil, d.Delete("/images/placeholder.png"))

	assert.Equal(t, ErrInvalidPath, d.Delete("../outside.png"))
}
