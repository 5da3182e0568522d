package connector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/domain/shared"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/hmacauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConnectionRepo is an in-memory connector.ConnectionRepository.
type fakeConnectionRepo struct {
	mu     sync.Mutex
	nextID int
	conns  map[int]*connector.Connection
	saves  int
}

var _ connector.ConnectionRepository = (*fakeConnectionRepo)(nil)

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{nextID: 1, conns: make(map[int]*connector.Connection)}
}

func (r *fakeConnectionRepo) FindByID(ctx context.Context, id int) (*connector.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	snapshot := *conn
	return &snapshot, nil
}

func (r *fakeConnectionRepo) FindAll(ctx context.Context) ([]*connector.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*connector.Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		snapshot := *conn
		out = append(out, &snapshot)
	}
	return out, nil
}

func (r *fakeConnectionRepo) FindByDirection(ctx context.Context, direction connector.Direction, offset, limit int) ([]*connector.Connection, int64, error) {
	all, _ := r.FindAll(ctx)
	var matched []*connector.Connection
	for _, conn := range all {
		if conn.Direction == direction {
			matched = append(matched, conn)
		}
	}
	return matched, int64(len(matched)), nil
}

func (r *fakeConnectionRepo) ExistsByPublicKey(ctx context.Context, publicKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.conns {
		if conn.PublicKey == publicKey {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeConnectionRepo) Save(ctx context.Context, conn *connector.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn.ID == 0 {
		conn.ID = r.nextID
		r.nextID++
	}
	snapshot := *conn
	r.conns[conn.ID] = &snapshot
	r.saves++
	return nil
}

func (r *fakeConnectionRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.conns, id)
	return nil
}

func (r *fakeConnectionRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func enabledConfig() config.ConnectorConfig {
	return config.ConnectorConfig{
		IsExportEnabled:   true,
		IsImportEnabled:   true,
		ValidMinutePeriod: 15,
	}
}

// signedRequest builds a request signed the way a consumer client would.
func signedRequest(t *testing.T, secretKey string, at time.Time) AuthRequest {
	t.Helper()

	hmac := hmacauth.NewAuthenticator()
	timestamp := hmacauth.FormatTimestamp(at)
	rawURL := "https://provider.example.com/api/v1/exchange/products?page=1"

	representation := hmac.CreateMessageRepresentation("GET", "", timestamp, rawURL)
	require.NotEmpty(t, representation)
	signature := hmac.CreateSignature(secretKey, representation)

	return AuthRequest{
		Method:        "GET",
		URL:           rawURL,
		PublicKey:     "pk-test",
		Timestamp:     timestamp,
		Authorization: hmacauth.SchemeConstant + " " + signature,
	}
}

func newAuthFixture(t *testing.T, cfg config.ConnectorConfig) (*AuthService, *fakeConnectionRepo, *connector.Connection) {
	t.Helper()

	repo := newFakeConnectionRepo()
	conn, err := connector.NewConnection(connector.DirectionExport, "https://consumer.example.com", "pk-test", "sk-test")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), conn))

	cache := NewConnectionCache(repo)
	t.Cleanup(func() { _ = cache.Close() })

	return NewAuthService(cfg, cache, nil), repo, conn
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("valid request succeeds and bumps counters", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-test", now.Add(-time.Minute))

		result, conn := svc.Authenticate(ctx, connector.DirectionExport, req, now)
		require.Equal(t, hmacauth.Success, result)
		require.NotNil(t, conn)
		assert.Equal(t, int64(1), conn.RequestCount)
		require.NotNil(t, conn.LastRequestUtc)
		assert.Equal(t, now, *conn.LastRequestUtc)
	})

	t.Run("connector fully disabled", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, config.ConnectorConfig{})
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, signedRequest(t, "sk-test", now), now)
		assert.Equal(t, hmacauth.ConnectorUnavailable, result)
	})

	t.Run("export disabled", func(t *testing.T) {
		cfg := enabledConfig()
		cfg.IsExportEnabled = false
		svc, _, _ := newAuthFixture(t, cfg)
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, signedRequest(t, "sk-test", now), now)
		assert.Equal(t, hmacauth.ExportDeactivated, result)
	})

	t.Run("missing public key", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-test", now)
		req.PublicKey = ""
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, req, now)
		assert.Equal(t, hmacauth.ConnectionInvalid, result)
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-test", now)
		req.Authorization = "Bearer abc def"
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, req, now)
		assert.Equal(t, hmacauth.InvalidAuthorizationHeader, result)
	})

	t.Run("unparseable timestamp", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-test", now)
		req.Timestamp = "yesterday"
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, req, now)
		assert.Equal(t, hmacauth.InvalidTimestamp, result)
	})

	t.Run("timestamp outside the window", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-test", now.Add(-20*time.Minute))
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, req, now)
		assert.Equal(t, hmacauth.TimestampOutOfPeriod, result)
	})

	t.Run("five minutes of skew is accepted", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-test", now.Add(-5*time.Minute))
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, req, now)
		assert.Equal(t, hmacauth.Success, result)
	})

	t.Run("unknown public key", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-test", now)
		req.PublicKey = "pk-other"
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, req, now)
		assert.Equal(t, hmacauth.ConnectionUnknown, result)
	})

	t.Run("wrong direction is unknown", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-test", now)
		result, _ := svc.Authenticate(ctx, connector.DirectionImport, req, now)
		assert.Equal(t, hmacauth.ConnectionUnknown, result)
	})

	t.Run("disabled connection", func(t *testing.T) {
		svc, repo, conn := newAuthFixture(t, enabledConfig())
		conn.IsActive = false
		require.NoError(t, repo.Save(ctx, conn))
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, signedRequest(t, "sk-test", now), now)
		assert.Equal(t, hmacauth.ConnectionDisabled, result)
	})

	t.Run("wrong secret fails the signature", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-wrong", now)
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, req, now)
		assert.Equal(t, hmacauth.InvalidSignature, result)
	})

	t.Run("tampered body fails the signature", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t, enabledConfig())
		req := signedRequest(t, "sk-test", now)
		req.Body = []byte("<tampered/>")
		result, _ := svc.Authenticate(ctx, connector.DirectionExport, req, now)
		assert.Equal(t, hmacauth.InvalidSignature, result)
	})
}

func TestAuthService_ReplayProtection(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	svc, _, _ := newAuthFixture(t, enabledConfig())
	req := signedRequest(t, "sk-test", now.Add(-time.Minute))

	result, _ := svc.Authenticate(ctx, connector.DirectionExport, req, now)
	require.Equal(t, hmacauth.Success, result)

	// The identical request replayed later: its timestamp is now older than
	// the stored last-request time.
	result, _ = svc.Authenticate(ctx, connector.DirectionExport, req, now.Add(time.Second))
	assert.Equal(t, hmacauth.TimestampOlderThanLastRequest, result)

	// A fresh request with a timestamp equal to the stored one is rejected
	// as well.
	replay := signedRequest(t, "sk-test", now)
	result, _ = svc.Authenticate(ctx, connector.DirectionExport, replay, now)
	require.Equal(t, hmacauth.Success, result)
	equal := signedRequest(t, "sk-test", now)
	result, _ = svc.Authenticate(ctx, connector.DirectionExport, equal, now.Add(time.Second))
	assert.Equal(t, hmacauth.TimestampOlderThanLastRequest, result)
}

func TestCheckVersion(t *testing.T) {
	assert.Equal(t, hmacauth.Success, CheckVersion("3 5.0.4"))
	assert.Equal(t, hmacauth.Success, CheckVersion("4 6.0.0"))
	assert.Equal(t, hmacauth.IncompatibleVersion, CheckVersion("2 4.2.0"))
	assert.Equal(t, hmacauth.IncompatibleVersion, CheckVersion(""))
	assert.Equal(t, hmacauth.IncompatibleVersion, CheckVersion("beta"))
}
