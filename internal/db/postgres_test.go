package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolOptionsDefaults(t *testing.T) {
	assert.Equal(t, PoolOptions{MaxConns: 10, MinConns: 1}, PoolOptions{}.withDefaults())
	assert.Equal(t, PoolOptions{MaxConns: 4, MinConns: 4}, PoolOptions{MaxConns: 4, MinConns: 8}.withDefaults())
}
