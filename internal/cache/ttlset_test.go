package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLSet(t *testing.T) {
	t.Parallel()

	s := NewTTLSet()
	s.Add("tok-1", time.Hour)
	s.Add("tok-2", time.Nanosecond)
	s.Add("tok-3", -time.Second)

	time.Sleep(time.Millisecond)

	assert.True(t, s.Contains("tok-1"))
	assert.False(t, s.Contains("tok-2"), "expired member reads as absent")
	assert.False(t, s.Contains("tok-3"), "non-positive ttl is never stored")
	assert.False(t, s.Contains("missing"))

	assert.Equal(t, 2, s.Len())
	s.Purge()
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains("tok-1"))
}
