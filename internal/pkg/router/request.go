package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
)

const maxBodyBytes int64 = 64 << 10

// Request is what a Handler receives.
type Request struct {
	*http.Request
}

// DecodeBody reads exactly one JSON value of at most 64KB into dst. Unknown
// fields are ignored. Any other decoding problem is an invalid-format error.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if dec.Decode(dst) != nil {
		return goerror.NewInvalidFormat()
	}

	// a second value, or a truncated tail, means the body was not a single document
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}
