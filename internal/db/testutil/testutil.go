// Package testutil starts throwaway database containers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	testDatabase = "yt_automation_test"
	testUser     = "test"
	testPassword = "test"
)

// TestDatabase represents a PostgreSQL test database instance.
type TestDatabase struct {
	Pool      *pgxpool.Pool
	Container *postgres.PostgresContainer
	ConnStr   string
}

// MigrationsPath returns the absolute path of the repository's migrations directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// SetupTestDatabase creates a PostgreSQL container, runs migrations, and returns a connection pool.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New(fmt.Sprintf("file://%s", MigrationsPath()), connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	m.Close()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	return &TestDatabase{
		Pool:      pool,
		Container: pgContainer,
		ConnStr:   connStr,
	}
}

// Cleanup closes the pool and terminates the container.
func (td *TestDatabase) Cleanup(t *testing.T) {
	if td.Pool != nil {
		td.Pool.Close()
	}

	if td.Container != nil {
		require.NoError(t, td.Container.Terminate(context.Background()))
	}
}

// TruncateTables empties every table for test isolation.
func (td *TestDatabase) TruncateTables(t *testing.T) {
	_, err := td.Pool.Exec(context.Background(),
		`TRUNCATE TABLE upload_history, app_config, channels`)
	require.NoError(t, err)
}

// TestMongo represents a MongoDB test instance.
type TestMongo struct {
	Client    *mongo.Client
	Database  *mongo.Database
	Container *mongodb.MongoDBContainer
	URI       string
}

// SetupTestMongo starts a MongoDB container and connects to it.
func SetupTestMongo(t *testing.T) *TestMongo {
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	return &TestMongo{
		Client:    client,
		Database:  client.Database(testDatabase),
		Container: container,
		URI:       uri,
	}
}

// Reset drops the test database.
func (tm *TestMongo) Reset(t *testing.T) {
	require.NoError(t, tm.Database.Drop(context.Background()))
}

// Cleanup disconnects and terminates the container.
func (tm *TestMongo) Cleanup(t *testing.T) {
	ctx := context.Background()
	if tm.Client != nil {
		_ = tm.Client.Disconnect(ctx)
	}
	if tm.Container != nil {
		require.NoError(t, tm.Container.Terminate(ctx))
	}
}
