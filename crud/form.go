package crud

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"go.hackfix.me/strata/view"
)

// MaxMemory is the maximum number of bytes of a multipart body stored in
// memory. The rest is stored in temporary files.
const MaxMemory = 32 << 20

// MaxBodySize is the maximum size in bytes of a JSON body.
const MaxBodySize = 10 << 20

// Form holds the decoded fields of a request body. JSON bodies keep their
// value types, while urlencoded and multipart fields are strings, or string
// slices for repeated fields.
type Form struct {
	Data  map[string]any
	Files map[string][]*multipart.FileHeader
}

// Has reports whether the form has the field.
func (f *Form) Has(key string) bool {
	_, ok := f.Data[key]
	return ok
}

// String returns the field as a string, formatting non-string JSON values.
func (f *Form) String(key string) string {
	switch v := f.Data[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the field as an integer.
func (f *Form) Int(key string) (int, error) {
	switch v := f.Data[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%v' is not an integer", v)
		}
		return int(v), nil
	default:
		n, err := strconv.Atoi(strings.TrimSpace(f.String(key)))
		if err != nil {
			return 0, fmt.Errorf("'%s' is not an integer", f.String(key))
		}
		return n, nil
	}
}

// ValidationError maps form fields to their validation errors. Errors that
// don't concern a single field are stored under "__all__".
type ValidationError map[string][]string

// Error implements the error interface.
func (e ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add records msg for field.
func (e ValidationError) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Err returns e if any errors were recorded, or nil.
func (e ValidationError) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Details returns the errors as canned response details.
func (e ValidationError) Details() map[string]any {
	details := make(map[string]any, len(e))
	for k, v := range e {
		details[k] = v
	}
	return details
}

// ParseForm decodes the body of r according to its content type. JSON,
// urlencoded and multipart bodies are supported. Other content types produce
// an empty form. Malformed bodies return a ValidationError, and JSON bodies
// over MaxBodySize a 413 *view.Error.
func ParseForm(r *http.Request) (*Form, error) {
	form := &Form{Data: map[string]any{}, Files: map[string][]*multipart.FileHeader{}}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return form, nil //nolint:nilerr // Unknown content, empty form.
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		body := http.MaxBytesReader(nil, r.Body, MaxBodySize)
		if err = json.NewDecoder(body).Decode(&form.Data); err != nil && !errors.Is(err, io.EOF) {
			if mbErr := (*http.MaxBytesError)(nil); errors.As(err, &mbErr) {
				return nil, view.NewError(http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body is larger than %d bytes", mbErr.Limit))
			}
			return nil, ValidationError{"__all__": {"invalid JSON body"}}
		}
		if form.Data == nil {
			form.Data = map[string]any{}
		}
	case mediaType == "application/x-www-form-urlencoded":
		if err = r.ParseForm(); err != nil {
			return nil, ValidationError{"__all__": {"invalid form body"}}
		}
		addValues(form, r.PostForm)
	case strings.HasPrefix(mediaType, "multipart/"):
		if err = r.ParseMultipartForm(MaxMemory); err != nil {
			return nil, ValidationError{"__all__": {"invalid multipart body"}}
		}
		addValues(form, r.MultipartForm.Value)
		maps.Copy(form.Files, r.MultipartForm.File)
	}

	return form, nil
}

func addValues(form *Form, values map[string][]string) {
	for k, v := range values {
		if len(v) == 1 {
			form.Data[k] = v[0]
		} else {
			form.Data[k] = slices.Clone(v)
		}
	}
}
