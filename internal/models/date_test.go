package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{in: `"2025-01-15"`, want: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{in: `"2025-01-15T09:30:00Z"`, want: time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(tc.in), &d), tc.in)
		assert.True(t, tc.want.Equal(d.Time), tc.in)
	}

	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"15/01/2025"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20250115`), &d))
}

func TestCreateTodoRequest_NullDueDate(t *testing.T) {
	var req CreateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","due_date":null}`), &req))
	assert.Nil(t, req.DueDate)
	assert.Nil(t, req.DueDate.Ptr())
}
