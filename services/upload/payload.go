package uploadsvc

import (
	"encoding/base64"
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var errEmptyPayload = errors.Wrap(core.ErrInvalidUpload, "empty payload")

// decodePayload decodes a base64 data URI ("data:image/png;base64,...") or a bare base64 string.
// Errors are caused by core.ErrInvalidUpload.
func decodePayload(payload string) (data []byte, contentType, ext string, err error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", "", errEmptyPayload
	}

	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, "", "", errors.Wrap(core.ErrInvalidUpload, "malformed data URI")
		}
		meta := payload[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", "", errors.Wrap(core.ErrInvalidUpload, "data URI is not base64 encoded")
		}
		contentType = strings.TrimSuffix(meta, ";base64")
		payload = payload[comma+1:]
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", "", errors.Wrapf(core.ErrInvalidUpload, "decoding base64 payload: %v", err)
	}
	if len(data) == 0 {
		return nil, "", "", errEmptyPayload
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		ext = exts[0]
	}
	return data, contentType, ext, nil
}
