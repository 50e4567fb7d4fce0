package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("malformed JSON body: "+err.Error(), err)
	}
	return nil
}

type number interface{ ~int | ~int64 }

// queryNumber parses a numeric query parameter, returning def when it is
// absent.
func queryNumber[T number](r *http.Request, name string, def T) (T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def, badRequest(fmt.Sprintf("query parameter %q must be an integer", name), err)
	}
	return T(v), nil
}

// queryList collects repeated and comma separated values of name.
func queryList[T ~string](r *http.Request, name string) []T {
	var out []T
	for _, raw := range r.URL.Query()[name] {
		for v := range strings.SplitSeq(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, T(v))
			}
		}
	}
	return out
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
