package projection

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/vyrodovalexey/apirelay/internal/observability"
)

// Result is the output of a projection: resolved values keyed by the literal
// path string, in the order the paths were requested.
type Result struct {
	keys   []string
	values map[string]interface{}
}

func newResult(capacity int) *Result {
	return &Result{
		keys:   make([]string, 0, capacity),
		values: make(map[string]interface{}, capacity),
	}
}

func (r *Result) set(key string, value interface{}) {
	if _, exists := r.values[key]; exists {
		return
	}
	r.keys = append(r.keys, key)
	r.values[key] = value
}

// Len returns the number of resolved paths.
func (r *Result) Len() int {
	return len(r.keys)
}

// Keys returns the resolved paths in request order.
func (r *Result) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value resolved for path.
func (r *Result) Get(path string) (interface{}, bool) {
	v, ok := r.values[path]
	return v, ok
}

// Map returns the result as a plain map. Key order is lost.
func (r *Result) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the result as a JSON object with keys in request order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Project selects paths from data.
//
// With no paths, data is returned unchanged. Otherwise the return value is a
// *Result holding every path that resolved; unresolved paths are omitted.
// data is only read, never modified.
func Project(data interface{}, paths []string) interface{} {
	if len(paths) == 0 {
		return data
	}
	result, _ := project(data, paths)
	return result
}

func project(data interface{}, paths []string) (*Result, []string) {
	result := newResult(len(paths))
	var missing []string
	for _, raw := range paths {
		if value, ok := ParsePath(raw).Resolve(data); ok {
			result.set(raw, value)
		} else {
			missing = append(missing, raw)
		}
	}
	return result, missing
}

// Projector wraps Project with debug logging of paths that did not resolve.
type Projector struct {
	logger observability.Logger
}

// NewProjector creates a new Projector.
func NewProjector(logger observability.Logger) *Projector {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Projector{logger: logger}
}

// Project behaves like the package-level Project.
func (p *Projector) Project(ctx context.Context, data interface{}, paths []string) interface{} {
	if len(paths) == 0 {
		return data
	}

	result, missing := project(data, paths)
	if len(missing) > 0 {
		p.logger.WithContext(ctx).Debug("field paths not resolved",
			observability.Strings("paths", missing),
			observability.Int("resolved", result.Len()),
		)
	}
	return result
}
