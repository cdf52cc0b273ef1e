package redis

import (
	"context"
	"testing"

	"novelchat/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientFailsFastWithoutServer(t *testing.T) {
	client, err := NewClient(context.Background(), config.RedisConfig{Address: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
