package uploadsvc

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
)

// 1x1 transparent png
var pngBytes, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=",
)

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func newLocal(t *testing.T) *localUploader {
	conf := &core.Config{}
	conf.Storage.MediaRoot = t.TempDir()
	conf.Storage.MediaURL = "http://localhost:8000/media/"
	return NewLocalUploader(conf)
}

func TestLocalUploader_Upload(t *testing.T) {
	u := newLocal(t)

	asset, err := u.Upload(context.Background(), pngDataURI(), "courses")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(asset.PublicID, "courses/"))
	assert.True(t, strings.HasSuffix(asset.PublicID, ".png"))
	assert.Equal(t, "http://localhost:8000/media/"+asset.PublicID, asset.URL)

	data, err := os.ReadFile(filepath.Join(u.Root(), filepath.FromSlash(asset.PublicID)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	t.Run("bare base64", func(t *testing.T) {
		asset, err := u.Upload(context.Background(), base64.StdEncoding.EncodeToString(pngBytes), "courses")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(asset.PublicID, ".png"))
	})
}

func TestLocalUploader_Upload_InvalidPayload(t *testing.T) {
	u := newLocal(t)

	for _, payload := range []string{"", "   ", "data:image/png,raw", "data:image/png;base64", "not base64!"} {
		_, err := u.Upload(context.Background(), payload, "courses")
		assert.ErrorIs(t, err, core.ErrInvalidUpload, payload)
	}
}

func TestLocalUploader_Destroy(t *testing.T) {
	u := newLocal(t)
	ctx := context.Background()

	asset, err := u.Upload(ctx, pngDataURI(), "courses")
	require.NoError(t, err)
	fp := filepath.Join(u.Root(), filepath.FromSlash(asset.PublicID))

	require.NoError(t, u.Destroy(ctx, asset.PublicID))
	_, err = os.Stat(fp)
	assert.True(t, os.IsNotExist(err))

	// destroying twice is a no-op
	assert.NoError(t, u.Destroy(ctx, asset.PublicID))
}
