package request

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        map[string]string
		wantErr     bool
	}{
		{
			name:        "urlencoded",
			contentType: "application/x-www-form-urlencoded",
			body:        url.Values{"status": {"resolved"}, "ignored": {"x"}}.Encode(),
			want:        map[string]string{"status": "resolved"},
		},
		{
			name:        "json strings and raw values",
			contentType: "application/json",
			body:        `{"status":"open","search_id":42,"manual_results":[{"title":"a","link":"b"}],"admin_notes":null}`,
			want: map[string]string{
				"status":         "open",
				"search_id":      "42",
				"manual_results": `[{"title":"a","link":"b"}]`,
			},
		},
		{
			name:        "json charset parameter",
			contentType: "application/json; charset=utf-8",
			body:        `{"admin_notes":""}`,
			want:        map[string]string{"admin_notes": ""},
		},
		{
			name:        "broken json",
			contentType: "application/json",
			body:        `{"status":`,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)

			got, err := Fields(r, "status", "search_id", "manual_results", "admin_notes")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadBody)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptional(t *testing.T) {
	fields := map[string]string{"a": ""}

	require.NotNil(t, Optional(fields, "a"))
	assert.Equal(t, "", *Optional(fields, "a"))
	assert.Nil(t, Optional(fields, "b"))
}
