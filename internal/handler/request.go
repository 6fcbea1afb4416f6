package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/attendance-tracker/internal/apperror"
	"github.com/sakif/attendance-tracker/internal/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// fields is a flattened request body. JSON objects and form-encoded bodies
// both decode into it, so handlers accept either.
type fields map[string]string

// get returns the first non-empty value among keys. Aliases are listed after
// the canonical name.
func (f fields) get(keys ...string) string {
	for _, k := range keys {
		if v := f[k]; v != "" {
			return v
		}
	}
	return ""
}

// readFields decodes a JSON object or a form-encoded body. An empty body
// yields no fields and no error.
func readFields(w http.ResponseWriter, r *http.Request) (fields, error) {
	out := fields{}
	if r.Body == nil || r.Body == http.NoBody {
		return out, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		// Read directly: ParseForm skips the body of a DELETE.
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, apperror.ValidationFailed("", "Invalid form body")
		}
		values, err := url.ParseQuery(string(buf))
		if err != nil {
			return nil, apperror.ValidationFailed("", "Invalid form body")
		}
		for k, v := range values {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
		return out, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, apperror.ValidationFailed("", "Invalid form body")
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
		return out, nil
	}

	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		return nil, apperror.ValidationFailed("", "Invalid JSON body")
	}
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			return nil, apperror.ValidationFailed(k, fmt.Sprintf("%s must be a string", k))
		}
	}
	return out, nil
}

// parseDate accepts RFC 3339, a bare YYYY-MM-DD (midnight in loc) or unix
// milliseconds. Empty means "not supplied" and yields the zero time.
// Years outside [0, 9999] are rejected: JSON cannot encode them.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	t, err := parseDateValue(s, loc)
	if err != nil {
		return time.Time{}, err
	}
	if y := t.UTC().Year(); y < 0 || y > 9999 {
		return time.Time{}, apperror.ValidationFailed("date", service.MsgDateOutOfRange)
	}
	return t, nil
}

func parseDateValue(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Time{}, apperror.ValidationFailed("date", "date must be RFC 3339, YYYY-MM-DD or unix milliseconds")
}
