package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenLimited(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled: true,
		Endpoints: []EndpointConfig{
			{Path: "/check", Method: "POST", Limit: 10, Window: time.Minute, Burst: 2},
		},
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
	})

	allowed, _ := l.Allow("u1", "/check", "POST")
	assert.True(t, allowed)
	allowed, _ = l.Allow("u1", "/check", "POST")
	assert.True(t, allowed)

	allowed, info := l.Allow("u1", "/check", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 10, info.Limit)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
}

func TestLimiter_CallersAreIndependent(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled: true,
		Endpoints: []EndpointConfig{
			{Path: "/check", Method: "POST", Limit: 10, Window: time.Minute, Burst: 1},
		},
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
	})

	allowed, _ := l.Allow("u1", "/check", "POST")
	assert.True(t, allowed)
	allowed, _ = l.Allow("u1", "/check", "POST")
	assert.False(t, allowed)

	// A different caller has their own bucket.
	allowed, _ = l.Allow("u2", "/check", "POST")
	assert.True(t, allowed)
}

func TestLimiter_HealthIsUnlimited(t *testing.T) {
	l := NewLimiter(DefaultConfig())

	for i := 0; i < 100; i++ {
		allowed, _ := l.Allow("u1", "/health", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})

	for i := 0; i < 100; i++ {
		allowed, _ := l.Allow("u1", "/check", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiter_PrefixMatch(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled: true,
		Endpoints: []EndpointConfig{
			{Path: "/rules/", Method: "DELETE", Limit: 10, Window: time.Minute, Burst: 1},
		},
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
	})

	allowed, _ := l.Allow("u1", "/rules/f1", "DELETE")
	assert.True(t, allowed)
	allowed, _ = l.Allow("u1", "/rules/f1", "DELETE")
	assert.False(t, allowed)
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/check", Method: "POST", Limit: 20},
		{Path: "/check/", Method: "POST", Limit: 20},
	}

	assert.NotNil(t, matchEndpoint("/check", "POST", configs))
	assert.NotNil(t, matchEndpoint("/check/uploaded", "POST", configs))
	assert.Nil(t, matchEndpoint("/check", "GET", configs))

	health := matchEndpoint("/health", "GET", configs)
	assert.NotNil(t, health)
	assert.Equal(t, 0, health.Limit)
}
