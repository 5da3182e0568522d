package connector

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		url       string
		publicKey string
		secretKey string
		wantErr   bool
	}{
		{"valid export", DirectionExport, "https://partner.example.com", "pub", "sec", false},
		{"valid import", DirectionImport, "http://shop.example.org/", "pub", "sec", false},
		{"bad direction", Direction("both"), "https://partner.example.com", "pub", "sec", true},
		{"empty url", DirectionExport, "", "pub", "sec", true},
		{"relative url", DirectionExport, "/relative/path", "pub", "sec", true},
		{"missing keys", DirectionExport, "https://partner.example.com", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := NewConnection(tt.direction, tt.url, tt.publicKey, tt.secretKey)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, conn.IsActive)
			assert.Equal(t, tt.direction, conn.Direction)
			assert.False(t, conn.CreatedOnUtc.IsZero())
		})
	}
}

func TestConnectionRecordRequest(t *testing.T) {
	conn, err := NewConnection(DirectionExport, "https://partner.example.com", "pub", "sec")
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conn.RecordRequest(now)

	require.NotNil(t, conn.LastRequestUtc)
	assert.Equal(t, now, *conn.LastRequestUtc)
	assert.Equal(t, int64(1), conn.RequestCount)
}

func TestConnectionRequestCountSaturates(t *testing.T) {
	conn, err := NewConnection(DirectionExport, "https://partner.example.com", "pub", "sec")
	require.NoError(t, err)

	conn.RequestCount = math.MaxInt64
	conn.RecordRequest(time.Now())

	assert.Equal(t, int64(math.MaxInt64), conn.RequestCount)
}

func TestConnectionIDLists(t *testing.T) {
	conn, err := NewConnection(DirectionExport, "https://partner.example.com", "pub", "sec")
	require.NoError(t, err)

	conn.SetManufacturerIDs([]int{3, 7, 11})
	conn.SetStoreIDs(nil)

	assert.Equal(t, "3,7,11", conn.LimitedToManufacturerIds)
	assert.Equal(t, []int{3, 7, 11}, conn.ManufacturerIDs())
	assert.Empty(t, conn.StoreIDs())

	// Tolerates whitespace and garbage entries.
	conn.LimitedToStoreIds = " 1, x ,2,0"
	assert.Equal(t, []int{1, 2}, conn.StoreIDs())
}

func TestConnectionDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://partner.example.com", "partner.example.com"},
		{"http://partner.example.com/shop/", "partner.example.comshop"},
	}
	for _, tt := range tests {
		conn, err := NewConnection(DirectionImport, tt.url, "pub", "sec")
		require.NoError(t, err)
		assert.Equal(t, tt.want, conn.Domain())
	}
}
