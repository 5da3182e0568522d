package connector

import (
	"context"
	"sync"
	"testing"

	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSkuRepo is an in-memory connector.SkuMappingRepository.
type fakeSkuRepo struct {
	mu       sync.Mutex
	nextID   int
	mappings map[int]*connector.SkuMapping
}

var _ connector.SkuMappingRepository = (*fakeSkuRepo)(nil)

func newFakeSkuRepo() *fakeSkuRepo {
	return &fakeSkuRepo{nextID: 1, mappings: make(map[int]*connector.SkuMapping)}
}

func (r *fakeSkuRepo) FindByID(ctx context.Context, id int) (*connector.SkuMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.mappings[id]; ok {
		snapshot := *m
		return &snapshot, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSkuRepo) FindByProductIDs(ctx context.Context, domain string, productIDs []int) ([]*connector.SkuMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*connector.SkuMapping
	for _, m := range r.mappings {
		if m.Domain != domain {
			continue
		}
		for _, id := range productIDs {
			if m.ProductID == id {
				snapshot := *m
				out = append(out, &snapshot)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeSkuRepo) List(ctx context.Context, offset, limit int) ([]*connector.SkuMapping, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*connector.SkuMapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		snapshot := *m
		out = append(out, &snapshot)
	}
	return out, int64(len(out)), nil
}

func (r *fakeSkuRepo) Save(ctx context.Context, m *connector.SkuMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == 0 {
		m.ID = r.nextID
		r.nextID++
	}
	snapshot := *m
	r.mappings[m.ID] = &snapshot
	return nil
}

func (r *fakeSkuRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mappings[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.mappings, id)
	return nil
}

func newServiceFixture(t *testing.T) (*ConnectionService, *fakeConnectionRepo) {
	t.Helper()
	repo := newFakeConnectionRepo()
	cache := NewConnectionCache(repo)
	t.Cleanup(func() { _ = cache.Close() })
	return NewConnectionService(repo, newFakeSkuRepo(), cache, nil), repo
}

func TestConnectionService_CreateExportConnection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceFixture(t)

	conn, err := svc.CreateExportConnection(ctx, "https://consumer.example.com")
	require.NoError(t, err)
	assert.True(t, conn.IsActive)
	assert.Equal(t, connector.DirectionExport, conn.Direction)
	assert.NotEmpty(t, conn.PublicKey)
	assert.NotEmpty(t, conn.SecretKey)
	assert.NotEqual(t, conn.PublicKey, conn.SecretKey)

	second, err := svc.CreateExportConnection(ctx, "https://other.example.com")
	require.NoError(t, err)
	assert.NotEqual(t, conn.PublicKey, second.PublicKey)
}

func TestConnectionService_CreateExportConnection_InvalidURL(t *testing.T) {
	svc, _ := newServiceFixture(t)
	_, err := svc.CreateExportConnection(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestConnectionService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceFixture(t)

	conn, err := svc.CreateExportConnection(ctx, "https://consumer.example.com")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, conn.ID, UpdateConnectionInput{
		IsActive:        false,
		ManufacturerIDs: []int{3, 7},
		StoreIDs:        []int{1},
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []int{3, 7}, updated.ManufacturerIDs())
	assert.Equal(t, []int{1}, updated.StoreIDs())
	// Keys survive an update untouched.
	assert.Equal(t, conn.PublicKey, updated.PublicKey)
}

func TestConnectionService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceFixture(t)

	conn, err := svc.CreateExportConnection(ctx, "https://consumer.example.com")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, conn.ID))
	assert.ErrorIs(t, svc.Delete(ctx, conn.ID), shared.ErrNotFound)
}

func TestConnectionService_SkuMappings(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceFixture(t)

	mapping, err := connector.NewSkuMapping(42, "peer.example.com", "PEER-42")
	require.NoError(t, err)
	require.NoError(t, svc.SaveSkuMapping(ctx, mapping))

	mappings, total, err := svc.SkuMappings(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, mappings, 1)
	assert.Equal(t, "PEER-42", mappings[0].Sku)

	require.NoError(t, svc.DeleteSkuMapping(ctx, mapping.ID))
	assert.ErrorIs(t, svc.DeleteSkuMapping(ctx, mapping.ID), shared.ErrNotFound)
}
