package backend

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
)

// multipartCall собирает тело multipart/form-data в буфер, чтобы его можно было
// отправить повторно при ретраях.
func multipartCall(method, path, token string, fields map[string]string, files ...*models.Attachment) (call, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return call{}, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось собрать multipart запрос")
		}
	}

	for _, f := range files {
		if f == nil {
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.Field), escapeQuotes(f.Filename)))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return call{}, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось собрать multipart запрос")
		}
		if _, err := part.Write(f.Data); err != nil {
			return call{}, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось собрать multipart запрос")
		}
	}

	if err := w.Close(); err != nil {
		return call{}, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось собрать multipart запрос")
	}

	return call{
		method:      method,
		path:        path,
		token:       token,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
