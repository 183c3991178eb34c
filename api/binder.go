// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// bindArgs produces the ordered argument list for an endpoint
// invocation. It never invokes the handler. A failure for a single
// parameter is reported as a [BadRequestError].
func bindArgs(e *EndpointDescriptor, pathValues map[string]string, r *http.Request, w http.ResponseWriter, principal *Principal) ([]any, error) {
	var body []byte
	bodyRead := false

	args := make([]any, len(e.params))
	for i, p := range e.params {
		switch p.Source {
		case FromPath:
			// Always a string; the consumer is responsible for casting.
			args[i] = pathValues[p.Key]
		case FromQuery:
			vs := r.URL.Query()[p.Key]
			if len(vs) > 0 {
				args[i] = vs[0]
			}
		case FromHeader:
			vs := r.Header.Values(p.Key)
			if len(vs) > 0 {
				args[i] = vs[0]
			}
		case FromBody:
			if !bodyRead {
				b, err := io.ReadAll(r.Body)
				if err != nil {
					return nil, BadRequestError{Cause: fmt.Errorf("read request body: %w", err)}
				}
				body = b
				bodyRead = true
			}

			if !isJsonContentType(r.Header.Get("Content-Type")) {
				args[i] = string(body)
				continue
			}

			var v any
			err := json.Unmarshal(body, &v)
			if err != nil {
				return nil, BadRequestError{Cause: fmt.Errorf("malformed json body: %w", err)}
			}
			args[i] = v
		case FromPrincipal:
			if principal != nil {
				args[i] = principal
			}
		case FromRequest:
			args[i] = r
		case FromResponse:
			args[i] = w
		default:
			return nil, BadRequestError{
				Cause: fmt.Errorf("unknown parameter source for argument %d of %s", i, e.target()),
			}
		}
	}
	return args, nil
}

func isJsonContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
