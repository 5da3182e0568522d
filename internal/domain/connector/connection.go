package connector

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopsync/backend/internal/domain/shared"
)

// Direction tells which side of a sync relationship a connection serves.
// An export connection authorizes a remote peer to pull data from this store;
// an import connection holds the keys this store uses to pull from a peer.
type Direction string

const (
	DirectionExport Direction = "export"
	DirectionImport Direction = "import"
)

// Connection is the identity of a sync peer: key pair, activity flag and
// observational counters. Counters are mutated in memory on every
// authenticated request and flushed back by the registry cache; they are not
// authoritative.
type Connection struct {
	shared.BaseEntity

	IsActive  bool      `gorm:"index:idx_connection_direction,priority:2"`
	Direction Direction `gorm:"size:16;index:idx_connection_direction,priority:1"`
	Url       string    `gorm:"size:2000;not null"`
	PublicKey string    `gorm:"size:50;not null;index"`
	SecretKey string    `gorm:"size:50;not null"`

	RequestCount       int64
	LastRequestUtc     *time.Time
	LastProductCallUtc *time.Time

	// Restriction sets, persisted as comma separated id lists.
	LimitedToManufacturerIds string `gorm:"size:4000"`
	LimitedToStoreIds        string `gorm:"size:4000"`
}

// TableName maps the entity to its table.
func (Connection) TableName() string {
	return "connector_connection"
}

// NewConnection validates and builds a connection record.
func NewConnection(direction Direction, rawURL, publicKey, secretKey string) (*Connection, error) {
	if direction != DirectionExport && direction != DirectionImport {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "connection direction must be export or import")
	}
	if rawURL == "" {
		return nil, shared.NewDomainError("INVALID_URL", "connection URL is required")
	}
	if u, err := url.Parse(rawURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, shared.NewDomainError("INVALID_URL", "connection URL must be absolute")
	}
	if publicKey == "" || secretKey == "" {
		return nil, shared.NewDomainError("INVALID_KEYS", "public and secret key are required")
	}

	return &Connection{
		BaseEntity: shared.NewBaseEntity(),
		IsActive:   true,
		Direction:  direction,
		Url:        rawURL,
		PublicKey:  publicKey,
		SecretKey:  secretKey,
	}, nil
}

// RecordRequest stores the authenticated request time and bumps the request
// counter. The counter saturates instead of wrapping.
func (c *Connection) RecordRequest(now time.Time) {
	utc := now.UTC()
	c.LastRequestUtc = &utc
	if c.RequestCount < math.MaxInt64 {
		c.RequestCount++
	}
}

// RecordProductCall remembers the last successful product export for this
// peer, used as the default fetch-from date on the consumer side.
func (c *Connection) RecordProductCall(now time.Time) {
	utc := now.UTC()
	c.LastProductCallUtc = &utc
}

// ManufacturerIDs returns the manufacturer restriction set.
func (c *Connection) ManufacturerIDs() []int {
	return splitIDList(c.LimitedToManufacturerIds)
}

// StoreIDs returns the store restriction set.
func (c *Connection) StoreIDs() []int {
	return splitIDList(c.LimitedToStoreIds)
}

// SetManufacturerIDs stores the manufacturer restriction set.
func (c *Connection) SetManufacturerIDs(ids []int) {
	c.LimitedToManufacturerIds = joinIDList(ids)
}

// SetStoreIDs stores the store restriction set.
func (c *Connection) SetStoreIDs(ids []int) {
	c.LimitedToStoreIds = joinIDList(ids)
}

// Domain returns the peer URL reduced to a bare host string, used as the key
// for peer specific SKU mappings and as the default data file name.
func (c *Connection) Domain() string {
	s := strings.TrimPrefix(strings.TrimPrefix(c.Url, "https://"), "http://")
	return strings.ReplaceAll(s, "/", "")
}

func splitIDList(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		if id, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func joinIDList(ids []int) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
