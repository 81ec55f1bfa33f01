package api

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// maxFormMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const maxFormMemory = 8 << 20

// fields is a flat view of a request: form values or the top-level members
// of a JSON object. JSON nulls are treated as absent.
type fields map[string]string

func (f fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) get(key string) string {
	return strings.TrimSpace(f[key])
}

var errBadBody = errors.New("invalid request body")

// readFields collects request fields. JSON bodies are decoded as an object;
// multipart and urlencoded bodies are parsed as forms. Query parameters are
// used as a fallback so GET requests work too. The returned form is non-nil
// for multipart requests and holds any uploaded files.
func readFields(r *http.Request) (fields, *multipart.Form, error) {
	f := fields{}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "application/json":
		var raw map[string]json.RawMessage
		if err := decodeJSON(r.Body, &raw); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errBadBody, err)
		}
		for k, v := range raw {
			s, ok, err := jsonScalar(v)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: field %s: %w", errBadBody, k, err)
			}
			if ok {
				f[k] = s
			}
		}

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errBadBody, err)
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				f[k] = v[0]
			}
		}

	default:
		if err := r.ParseForm(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errBadBody, err)
		}
		for k := range r.PostForm {
			f[k] = r.PostForm.Get(k)
		}
	}

	for k, v := range r.URL.Query() {
		if _, ok := f[k]; !ok && len(v) > 0 {
			f[k] = v[0]
		}
	}

	return f, r.MultipartForm, nil
}

// jsonScalar renders a JSON scalar as text. It reports false for null.
func jsonScalar(raw json.RawMessage) (string, bool, error) {
	s := strings.TrimSpace(string(raw))
	switch {
	case s == "null":
		return "", false, nil
	case strings.HasPrefix(s, `"`):
		var out string
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", false, err
		}
		return out, true, nil
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return "", false, errors.New("expected a scalar value")
	default:
		return s, true, nil
	}
}
