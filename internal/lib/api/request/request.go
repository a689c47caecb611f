// Package request reads the flat field sets the console submits either as a
// form (urlencoded or multipart) or as a JSON object.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/render"
)

const maxMemory = 10 << 20

var ErrBadBody = errors.New("invalid request body")

// Fields returns the named fields present in the request body. JSON strings
// are unquoted; other JSON values (numbers, arrays) are returned as their raw
// text. A JSON null counts as absent.
func Fields(r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if ct == "application/json" {
		var raw map[string]json.RawMessage
		if err := render.DecodeJSON(r.Body, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadBody, err)
		}

		for _, name := range names {
			v, ok := raw[name]
			if !ok || bytes.Equal(v, []byte("null")) {
				continue
			}

			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				out[name] = s
				continue
			}
			out[name] = string(v)
		}

		return out, nil
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("%w: %w", ErrBadBody, err)
	}

	for _, name := range names {
		if vs, ok := r.PostForm[name]; ok && len(vs) > 0 {
			out[name] = vs[0]
		}
	}

	return out, nil
}

// Optional returns a pointer to the field value, or nil when it was not sent.
func Optional(fields map[string]string, name string) *string {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	return &v
}
