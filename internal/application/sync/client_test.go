package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/connectorfs"
	"github.com/shopsync/backend/internal/infrastructure/hmacauth"
	"github.com/shopsync/backend/internal/infrastructure/persistence"
	"github.com/shopsync/backend/internal/infrastructure/xmlstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	client *Client
	fs     *connectorfs.FileSystem
	stats  *connectorfs.ImportStats
	repo   *persistence.ConnectionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))

	fs, err := connectorfs.New(t.TempDir())
	require.NoError(t, err)
	stats := connectorfs.NewImportStats(fs)

	cfg := &config.Config{}
	cfg.App.Version = "1.0.0"

	repo := persistence.NewConnectionRepository(db)

	return &fixture{
		client: NewClient(cfg, repo, fs, stats, nil),
		fs:     fs,
		stats:  stats,
		repo:   repo,
	}
}

// newImportConnection persists an import connection pointing at the test
// server.
func (f *fixture) newImportConnection(t *testing.T, serverURL string) *connector.Connection {
	t.Helper()
	conn, err := connector.NewConnection(connector.DirectionImport, serverURL, "pk-peer", "sk-peer")
	require.NoError(t, err)
	require.NoError(t, f.repo.Save(context.Background(), conn))
	return conn
}

// verifySignature recomputes the request signature the way the serving side
// does and reports whether the client signed correctly.
func verifySignature(r *http.Request, secretKey, serverURL string) bool {
	auth := hmacauth.NewAuthenticator()
	timestamp := r.Header.Get(hmacauth.HeaderDate)
	rawURL := serverURL + r.URL.RequestURI()
	representation := auth.CreateMessageRepresentation(r.Method, auth.CreateContentDigest(nil), timestamp, rawURL)
	expected := hmacauth.SchemeConstant + " " + auth.CreateSignature(secretKey, representation)
	return auth.SignaturesEqual(expected, r.Header.Get("Authorization"))
}

func TestClient_FetchAbout(t *testing.T) {
	f := newFixture(t)

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, AboutPath, r.URL.Path)
		require.Equal(t, "pk-peer", r.Header.Get(hmacauth.HeaderPublicKey))
		require.True(t, verifySignature(r, "sk-peer", server.URL))

		w.Header().Set(hmacauth.HeaderVersion, "3 2.1.0")
		w.Header().Set(hmacauth.HeaderRequestCount, "42")
		w.Header().Set(hmacauth.HeaderLastRequest, hmacauth.FormatTimestamp(time.Now()))
		w.Write([]byte(`<Content>
			<AppVersion>2.1.0</AppVersion>
			<ConnectorVersion>3 2.1.0</ConnectorVersion>
			<StoreName>Peer Shop</StoreName>
			<StoreUrl>` + server.URL + `</StoreUrl>
			<StoreCount>1</StoreCount>
			<Categories><Category><Id>10</Id><Name>Furniture</Name></Category></Categories>
		</Content>`))
	}))
	defer server.Close()

	conn := f.newImportConnection(t, server.URL)

	about, err := f.client.FetchAbout(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "Peer Shop", about.StoreName)
	require.Len(t, about.Categories, 1)
	assert.Equal(t, "Furniture", about.Categories[0].Name)

	// The peer-reported counters are persisted.
	saved, err := f.repo.FindByID(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), saved.RequestCount)
	assert.NotNil(t, saved.LastRequestUtc)

	// A snapshot of the raw document lands in the about workspace.
	files, err := f.fs.ListFiles(connectorfs.KindAbout)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestClient_FetchProductData(t *testing.T) {
	f := newFixture(t)

	document := `<Content><Products Version="3"><Product><Id>1</Id></Product></Products></Content>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, ProductDataPath, r.URL.Path)
		assert.Equal(t, "7,8", r.URL.Query().Get("categoryIds"))

		w.Header().Set(hmacauth.HeaderCategory, xmlstream.SectionStats{Success: 2, TotalRecords: 2}.CSV())
		w.Header().Set(hmacauth.HeaderProduct, xmlstream.SectionStats{Success: 1, TotalRecords: 1}.CSV())
		w.Write([]byte(document))
	}))
	defer server.Close()

	conn := f.newImportConnection(t, server.URL)

	result, err := f.client.FetchProductData(context.Background(), conn, FetchOptions{CategoryIDs: []int{7, 8}})
	require.NoError(t, err)
	require.False(t, result.Empty)
	assert.Equal(t, 1, result.ProductStats.TotalRecords)
	assert.Equal(t, 2, result.CategoryStats.Success)

	data, err := os.ReadFile(f.fs.FullPath(connectorfs.KindProduct, result.FileName))
	require.NoError(t, err)
	assert.Equal(t, document, string(data))

	recorded := f.stats.StatsFor(result.FileName)
	assert.Equal(t, 1, recorded.ProductCount)
	assert.Equal(t, 2, recorded.CategoryCount)
}

func TestClient_FetchProductData_EmptyResponseDiscarded(t *testing.T) {
	f := newFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(hmacauth.HeaderCategory, xmlstream.SectionStats{}.CSV())
		w.Header().Set(hmacauth.HeaderProduct, xmlstream.SectionStats{}.CSV())
		w.Write([]byte(`<Content></Content>`))
	}))
	defer server.Close()

	conn := f.newImportConnection(t, server.URL)

	result, err := f.client.FetchProductData(context.Background(), conn, FetchOptions{})
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Empty(t, result.FileName)

	files, err := f.fs.ListFiles(connectorfs.KindProduct)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestClient_RejectedRequestSurfacesPeerMessage(t *testing.T) {
	f := newFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(hmacauth.HeaderAuthResultDesc, "InvalidSignature")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	conn := f.newImportConnection(t, server.URL)

	_, err := f.client.FetchAbout(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidSignature")
}

func TestClient_ErrorBodySurfaced(t *testing.T) {
	f := newFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`<OperationResultModel><HasError>true</HasError><ShortMessage>export is turned off</ShortMessage></OperationResultModel>`))
	}))
	defer server.Close()

	conn := f.newImportConnection(t, server.URL)

	_, err := f.client.FetchAbout(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export is turned off")
}

func TestClient_IncompatiblePeerVersion(t *testing.T) {
	f := newFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(hmacauth.HeaderVersion, "2 0.9.0")
		w.Write([]byte(`<Content></Content>`))
	}))
	defer server.Close()

	conn := f.newImportConnection(t, server.URL)

	_, err := f.client.FetchAbout(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible")
}
