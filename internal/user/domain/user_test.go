package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_HasActiveSubscription(t *testing.T) {
	subID := "sub_123"
	empty := ""

	tests := []struct {
		name     string
		user     User
		expected bool
	}{
		{"with subscription", User{SubscriptionID: &subID}, true},
		{"nil subscription", User{SubscriptionID: nil}, false},
		{"empty subscription", User{SubscriptionID: &empty}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.HasActiveSubscription())
		})
	}
}

func TestUser_FreshnessMillis(t *testing.T) {
	t.Run("established freshness", func(t *testing.T) {
		ts := time.UnixMilli(1700000000123).UTC()
		user := User{LastKeyGeneratedAt: &ts}

		millis, ok := user.FreshnessMillis()
		assert.True(t, ok)
		assert.Equal(t, int64(1700000000123), millis)
	})

	t.Run("no freshness yet", func(t *testing.T) {
		user := User{}

		_, ok := user.FreshnessMillis()
		assert.False(t, ok)
	})
}
