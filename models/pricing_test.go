package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    ErrorMessages
		wantErr bool
	}{
		{name: "list", input: `["Required.", "Too short."]`, want: ErrorMessages{"Required.", "Too short."}},
		{name: "bare string", input: `"Required."`, want: ErrorMessages{"Required."}},
		{name: "null", input: `null`, want: nil},
		{name: "number", input: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ErrorMessages
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPricingResponse_HasSessionExpired(t *testing.T) {
	t.Parallel()

	var resp PricingResponse
	require.NoError(t, json.Unmarshal([]byte(`{
		"order_summary": {},
		"errors": {"csrf_token": ["The CSRF token has expired."], "Registration": ["Pick a workshop"]}
	}`), &resp))

	assert.True(t, resp.HasSessionExpired())
	assert.Equal(t, "The CSRF token has expired.", resp.Errors[CSRFErrorKey].String())
	assert.Equal(t, ErrorMessages{"Pick a workshop"}, resp.Errors["Registration"])

	resp.Errors = FieldErrors{"email": {"Invalid email address."}}
	assert.False(t, resp.HasSessionExpired())
}
