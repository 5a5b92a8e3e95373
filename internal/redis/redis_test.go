package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigOptions(t *testing.T) {
	assert.Equal(t, "tcp", Config{Addr: "localhost:6379"}.options().Network)
	assert.Equal(t, "unix", Config{Addr: "/var/run/redis.sock"}.options().Network)
	assert.Equal(t, "unix", Config{Addr: "redis.sock", Network: "unix"}.options().Network)
}
