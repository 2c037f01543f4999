package crud

import (
	"encoding/json"
	"fmt"
	"maps"

	"go.hackfix.me/strata/view"
)

const contentTypeJSON = "application/json"

// Serializer renders a single object as a response body.
type Serializer[T any] func(c *view.Context, obj *T) (contentType string, body []byte, err error)

// ListSerializer renders a list of objects as a response body.
type ListSerializer[T any] func(c *view.Context, objs []*T) (contentType string, body []byte, err error)

// JSON returns a serializer that encodes the object as a JSON object.
func JSON[T any]() Serializer[T] {
	return func(_ *view.Context, obj *T) (string, []byte, error) {
		body, err := json.Marshal(obj)
		if err != nil {
			return "", nil, fmt.Errorf("failed encoding object: %w", err)
		}
		return contentTypeJSON, body, nil
	}
}

// ListJSON returns a list serializer that encodes the objects as a JSON array.
// If the Context has a metadata map at metaKey, the result is instead a JSON
// object holding the metadata fields and the array under "results".
func ListJSON[T any](metaKey string) ListSerializer[T] {
	return func(c *view.Context, objs []*T) (string, []byte, error) {
		if objs == nil {
			objs = []*T{}
		}

		var v any = objs
		if meta, ok := view.Lookup[map[string]any](c, metaKey); ok {
			out := make(map[string]any, len(meta)+1)
			maps.Copy(out, meta)
			out["results"] = objs
			v = out
		}

		body, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("failed encoding objects: %w", err)
		}
		return contentTypeJSON, body, nil
	}
}
