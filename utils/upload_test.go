package utils

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scanndine/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

func TestImageStoreSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir, "http://api.test/")

	url, err := store.Save(fileHeader(t, "soup.PNG", []byte("png bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://api.test/uploads/item-"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	path := filepath.Join(dir, filepath.Base(url))
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(saved))

	require.NoError(t, store.Delete(url))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestImageStoreRejectsUnknownType(t *testing.T) {
	store := NewImageStore(t.TempDir(), "http://api.test")
	_, err := store.Save(fileHeader(t, "notes.txt", []byte("hi")))
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestImageStoreIgnoresForeignURLs(t *testing.T) {
	store := NewImageStore(t.TempDir(), "http://api.test")
	assert.NoError(t, store.Delete("https://cdn.example.com/uploads/x.png"))
	assert.NoError(t, store.Delete("http://api.test/uploads/missing.png"))
}

func TestRenderQR(t *testing.T) {
	uri, err := RenderQR("http://front.test/menu?table=table-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}
