package storage_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"

	"github.com/neonarte/neon-backend/internal/infrastructure/storage"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newStore(t *testing.T) *storage.LocalStore {
	cfg := testutil.Config()
	cfg.External.Storage.LocalPath = t.TempDir()
	cfg.External.Storage.PublicPath = "/uploads/"
	return storage.NewLocalStore(cfg, "quotes")
}

func TestLocalStore_SaveAndDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	path, err := store.Save(ctx, "Cartel.PNG", pngBytes(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "quotes/"))
	assert.True(t, strings.HasSuffix(path, ".png"))
	assert.Equal(t, "/uploads/"+path, store.URL(path))

	full, err := store.Open(path)
	require.NoError(t, err)
	_, err = os.Stat(full)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, path))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, path))
}

func TestLocalStore_Validation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	assert.True(t, apperror.Is(store.Validate("diseño.gif", 10), apperror.KindValidation))
	assert.True(t, apperror.Is(store.Validate("diseño.png", 0), apperror.KindValidation))
	assert.True(t, apperror.Is(store.Validate("diseño.png", 2<<20), apperror.KindValidation))
	assert.NoError(t, store.Validate("diseño.jpg", 10))

	_, err := store.Save(ctx, "falso.png", []byte("not an image"))
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestLocalStore_PathsStayInsideRoot(t *testing.T) {
	cfg := testutil.Config()
	root := t.TempDir()
	cfg.External.Storage.LocalPath = root
	store := storage.NewLocalStore(cfg, "quotes")

	full, err := store.Open("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(full, root+string(os.PathSeparator)))

	_, err = store.Open("")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
