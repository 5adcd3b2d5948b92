package main

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demo-arena/arena-backend/internal/bootstrap"
)

func TestRequireSharedJobStore(t *testing.T) {
	err := requireSharedJobStore(&bootstrap.App{}, "serve --no-worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, requireSharedJobStore(&bootstrap.App{Redis: client}, "worker"))
}
