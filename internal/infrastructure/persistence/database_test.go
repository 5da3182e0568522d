package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase builds a Database on top of a mocked SQL connection so SQL
// shapes can be asserted without a live server.
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestConnectionRepository_QueryShapes(t *testing.T) {
	t.Run("exists by public key issues a count", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "connector_connection" WHERE public_key = \$1`).
			WithArgs("pk-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		repo := NewConnectionRepository(db.DB)
		exists, err := repo.ExistsByPublicKey(context.Background(), "pk-1")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query errors propagate", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "connector_connection"`).
			WillReturnError(assert.AnError)

		repo := NewConnectionRepository(db.DB)
		_, err := repo.ExistsByPublicKey(context.Background(), "pk-1")
		assert.Error(t, err)
	})
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}
