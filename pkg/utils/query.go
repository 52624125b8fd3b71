package utils

import (
	"fmt"
	"net/http"
	"time"
)

// QueryTime reads an RFC 3339 timestamp or a YYYY-MM-DD date (UTC midnight)
// from the query string. A missing parameter yields the zero time.
func QueryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC 3339 or YYYY-MM-DD, got %q", name, raw)
	}
	return t, nil
}
