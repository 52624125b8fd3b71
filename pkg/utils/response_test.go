package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestRespondWithJSON(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		payload  any
		wantBody string
	}{
		{name: "Object", code: http.StatusOK, payload: map[string]int{"id": 7}, wantBody: `{"id":7}`},
		{name: "No payload", code: http.StatusNoContent, payload: nil, wantBody: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithJSON(w, tt.code, tt.payload)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.wantBody == "" {
				assert.Empty(t, w.Body.String())
				return
			}
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, http.StatusConflict, "insufficient stock")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient stock", gjson.Get(w.Body.String(), "message").String())
}
