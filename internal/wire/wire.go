// Package wire implements the line-delimited JSON protocol spoken between
// browsers and providers: one UTF-8 JSON object per line, newline
// terminated, one request and one response per connection.
package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

// Recognized methods (case-sensitive).
const (
	MethodGetInfo        = "GetInfo"
	MethodGetRootObjects = "GetRootObjects"
	MethodGetObjects     = "GetObjects"
	MethodSearch         = "Search"
)

// The discriminator may arrive under any of these keys.
var methodKeys = []string{"method", "message", "type", "command", "action"}

// The object id may arrive under any of these keys.
var idKeys = []string{"id", "path", "object", "objectId", "ObjectId"}

var recognizedMethods = map[string]bool{
	MethodGetInfo:        true,
	MethodGetRootObjects: true,
	MethodGetObjects:     true,
	MethodSearch:         true,
}

// ErrInvalidJSON marks a request line that did not parse.
var ErrInvalidJSON = errors.New("Invalid JSON")

// Request is a parsed request line.
type Request struct {
	Method string
	fields map[string]any
}

// ParseRequest decodes one request line. Accepted forms:
//   - {"method":"GetObjects","id":"/x"} with the discriminator under any
//     accepted key
//   - legacy key-presence: {"GetInfo": true}
//   - bare JSON string: "GetRootObjects"
func ParseRequest(line []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, ErrInvalidJSON
	}
	switch t := v.(type) {
	case string:
		if recognizedMethods[t] {
			return &Request{Method: t}, nil
		}
		return &Request{}, nil
	case map[string]any:
		req := &Request{fields: t}
		for _, key := range methodKeys {
			if s, ok := t[key].(string); ok && recognizedMethods[s] {
				req.Method = s
				return req, nil
			}
		}
		// Legacy form: the method name itself is a key.
		for _, name := range []string{MethodGetInfo, MethodGetRootObjects, MethodGetObjects, MethodSearch} {
			if v, present := t[name]; present {
				if v == nil || v != false {
					req.Method = name
					return req, nil
				}
			}
		}
		return req, nil
	default:
		return &Request{}, nil
	}
}

// ObjectID returns the request's object id, found under any accepted key.
func (r *Request) ObjectID() (string, bool) {
	for _, key := range idKeys {
		if s, ok := r.fields[key].(string); ok {
			return s, true
		}
	}
	return "", false
}

// SearchTerm returns the "search" parameter.
func (r *Request) SearchTerm() string {
	s, _ := r.fields["search"].(string)
	return s
}

// Recursive returns the "recursive" flag.
func (r *Request) Recursive() bool {
	b, _ := r.fields["recursive"].(bool)
	return b
}

// SearchHandle returns the carried-forward handle object from a polling
// request, or nil on an initial search call.
func (r *Request) SearchHandle() *model.Object {
	raw, ok := r.fields["search_handle"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var obj model.Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	if obj.ID == "" {
		return nil
	}
	return &obj
}

// IconEntry is one icon catalog entry in a GetInfo response.
type IconEntry struct {
	Filename string `json:"filename"`
	Data     string `json:"data"` // base64 PNG bytes
}

// Info is the GetInfo response shape.
type Info struct {
	RootName string      `json:"RootName"`
	Icons    []IconEntry `json:"icons"`
}

// ObjectsResponse is the listing response shape.
type ObjectsResponse struct {
	Objects []*model.Object `json:"objects"`
}

// ErrorResponse is emitted on the same line for any protocol error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Objects wraps a listing, normalizing nil to an empty array.
func Objects(objs []*model.Object) *ObjectsResponse {
	if objs == nil {
		objs = []*model.Object{}
	}
	return &ObjectsResponse{Objects: objs}
}

// Errorf builds an error response.
func Errorf(format string, args ...any) *ErrorResponse {
	return &ErrorResponse{Error: fmt.Sprintf(format, args...)}
}

// WriteLine encodes payload as one compact JSON line.
func WriteLine(w io.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// MaxLineBytes bounds a single request line; anything longer is treated as
// malformed rather than buffered without limit.
const MaxLineBytes = 1 << 20

// ReadLine reads one newline-terminated line from r, up to MaxLineBytes.
func ReadLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if err == nil {
			return line, nil
		}
		if err == bufio.ErrBufferFull {
			if len(line) > MaxLineBytes {
				return nil, fmt.Errorf("request line exceeds %d bytes", MaxLineBytes)
			}
			continue
		}
		if err == io.EOF && len(line) > 0 {
			return line, nil
		}
		return nil, err
	}
}
