package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestNewURL(t *testing.T) {
	url := NewURL("abc123", "https://example.com", 30, false, testTime)

	assert.Equal(t, "abc123", url.ShortCode)
	assert.Equal(t, "https://example.com", url.OriginalURL)
	assert.False(t, url.CustomShortCode)
	assert.Equal(t, testTime, url.CreatedAt)
	assert.Equal(t, testTime.Add(30*time.Minute), url.ExpiresAt)
	assert.Equal(t, 30, url.ValidityMinutes)
	assert.Zero(t, url.ClickCount)
	assert.Empty(t, url.Clicks)
	assert.True(t, url.IsActive)
}

func TestURL_IsExpired(t *testing.T) {
	url := NewURL("abc123", "https://example.com", 1, false, testTime)

	assert.False(t, url.IsExpired(testTime))
	assert.False(t, url.IsExpired(testTime.Add(time.Minute)))
	assert.True(t, url.IsExpired(testTime.Add(time.Minute+time.Second)))
}

func TestURL_AddClick(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		url := NewURL("abc123", "https://example.com", 30, false, testTime)

		ev := url.AddClick(Click{}, testTime)

		assert.Equal(t, "Direct", ev.Referrer)
		assert.Equal(t, "Unknown", ev.UserAgent)
		assert.Equal(t, "Unknown", ev.IPAddress)
		assert.Equal(t, "Local/Localhost", ev.GeoLocation)
		assert.Equal(t, testTime, ev.Timestamp)
	})

	t.Run("ledger and counter stay in sync", func(t *testing.T) {
		url := NewURL("abc123", "https://example.com", 30, false, testTime)

		for i := 0; i < 5; i++ {
			url.AddClick(Click{Referrer: "https://google.com"}, testTime.Add(time.Duration(i)*time.Second))
		}

		assert.Equal(t, int64(5), url.ClickCount)
		assert.Len(t, url.Clicks, 5)
		assert.Equal(t, "https://google.com", url.Clicks[4].Referrer)
	})
}

func TestURL_Deactivate(t *testing.T) {
	url := NewURL("abc123", "https://example.com", 30, false, testTime)

	url.Deactivate()

	assert.False(t, url.IsActive)
	assert.Equal(t, testTime.Add(30*time.Minute), url.ExpiresAt)
}

func TestURL_Clone(t *testing.T) {
	url := NewURL("abc123", "https://example.com", 30, false, testTime)
	url.AddClick(Click{IPAddress: "8.8.8.8"}, testTime)

	cp := url.Clone()
	cp.AddClick(Click{}, testTime)

	assert.Equal(t, int64(1), url.ClickCount)
	assert.Len(t, url.Clicks, 1)
	assert.Equal(t, int64(2), cp.ClickCount)
}

func TestURL_Stats(t *testing.T) {
	t.Run("active record", func(t *testing.T) {
		url := NewURL("abc123", "https://example.com", 30, true, testTime)
		url.AddClick(Click{}, testTime)

		stats := url.Stats(testTime.Add(time.Minute))

		assert.Equal(t, "abc123", stats.ShortCode)
		assert.Equal(t, "https://example.com", stats.OriginalURL)
		assert.True(t, stats.IsActive)
		assert.False(t, stats.IsExpired)
		assert.True(t, stats.CustomShortCode)
		assert.Equal(t, int64(1), stats.ClickCount)
		assert.Len(t, stats.Clicks, 1)
	})

	t.Run("expired record is inactive", func(t *testing.T) {
		url := NewURL("abc123", "https://example.com", 1, false, testTime)

		stats := url.Stats(testTime.Add(2 * time.Minute))

		assert.False(t, stats.IsActive)
		assert.True(t, stats.IsExpired)
	})

	t.Run("deactivated record stays inactive before expiry", func(t *testing.T) {
		url := NewURL("abc123", "https://example.com", 30, false, testTime)
		url.Deactivate()

		stats := url.Stats(testTime)

		assert.False(t, stats.IsActive)
		assert.False(t, stats.IsExpired)
	})
}

func TestGeoLocation(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want string
	}{
		{"empty ip", "", "Local/Localhost"},
		{"unknown ip", "Unknown", "Local/Localhost"},
		{"loopback ipv4", "127.0.0.1", "Local/Localhost"},
		{"loopback ipv6", "::1", "Local/Localhost"},
		// 8+8+8+8 = 32, 32 % 8 = 0
		{"public dns", "8.8.8.8", "New York, US"},
		// 1+1+1+1 = 4
		{"cloudflare dns", "1.1.1.1", "Berlin, DE"},
		// 203+0+113+5 = 321, 321 % 8 = 1
		{"documentation range", "203.0.113.5", "London, UK"},
		// no dots, leading digits 2001, 2001 % 8 = 1
		{"public ipv6", "2001:db8::ff00:42", "London, UK"},
		// leading digits per octet: 192+0+2 = 194, 194 % 8 = 2
		{"octet with trailing garbage", "192.0.2x", "Tokyo, JP"},
		// no leading digits anywhere, 0 % 8 = 0
		{"non numeric host", "example.com", "New York, US"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geoLocation(tt.ip))
		})
	}
}
