package uploadsvc

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

// localUploader stores uploads on the local filesystem, under root; they are served from baseURL.
type localUploader struct {
	root    string
	baseURL string
}

var _ core.Uploader = (*localUploader)(nil)

func NewLocalUploader(conf *core.Config) *localUploader {
	root := conf.Storage.MediaRoot
	if !filepath.IsAbs(root) {
		root = filepath.Join(conf.WorkDir, root)
	}
	return &localUploader{
		root:    root,
		baseURL: strings.TrimSuffix(conf.Storage.MediaURL, "/"),
	}
}

// Root is the directory the uploads are written to.
func (u *localUploader) Root() string { return u.root }

func (u *localUploader) Upload(_ context.Context, payload, folder string) (core.Asset, error) {
	data, _, ext, err := decodePayload(payload)
	if err != nil {
		return core.Asset{}, err
	}

	publicID := path.Join(folder, core.NewID()+ext)
	fp := filepath.Join(u.root, filepath.FromSlash(publicID))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return core.Asset{}, errors.Wrap(err, "creating upload folder")
	}
	if err := os.WriteFile(fp, data, 0o644); err != nil {
		return core.Asset{}, errors.Wrap(err, "writing upload")
	}
	return core.Asset{PublicID: publicID, URL: u.baseURL + "/" + publicID}, nil
}

func (u *localUploader) Destroy(_ context.Context, publicID string) error {
	fp := filepath.Join(u.root, filepath.FromSlash(path.Clean("/"+publicID)))
	if err := os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing upload")
	}
	return nil
}
