package api

import (
	"encoding/json"
	"testing"
	"time"

	"novelchat/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrap(t *testing.T) {
	var out []int
	require.NoError(t, unwrap("/x", []byte(`{"code":200,"data":[1,2],"msg":"success"}`), &out))
	assert.Equal(t, []int{1, 2}, out)

	require.NoError(t, unwrap("/x", []byte(`{"code":200,"data":null}`), &out))
	require.NoError(t, unwrap("/x", []byte(`{"code":200,"data":{"a":1}}`), nil))

	err := unwrap("/x", []byte(`{"code":401,"msg":"login first"}`), &out)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAPI))
	assert.Equal(t, "login first", apperrors.FromError(err).Message)

	err = unwrap("/x", []byte(`{"code":500}`), &out)
	assert.Equal(t, "Error", apperrors.FromError(err).Message)

	err = unwrap("/x", []byte(`<html>`), &out)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAPI))

	err = unwrap("/x", []byte(`{"code":200,"data":"nope"}`), &out)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAPI))
}

func TestTimeUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"epoch millis", `1704067200000`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"rfc3339", `"2024-01-01T08:00:00+08:00"`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"jackson default", `"2024-01-01T00:00:00.000+0000"`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"space separated", `"2024-01-01 00:00:00"`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"null", `null`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Time
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.True(t, tt.want.Equal(got.Time), "got %s", got.Time)
		})
	}

	var bad Time
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestMessageTimestampFallsBackToCreateTime(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"senderId":1,"content":"x","type":2,"createTime":1704067200123}`), &m))

	cm := m.ChatMessage()
	assert.Equal(t, "2024-01-01T00:00:00.123Z", cm.Timestamp)

	m.Timestamp = "client-set"
	assert.Equal(t, "client-set", m.ChatMessage().Timestamp)
}
