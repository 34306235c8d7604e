package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/codeready-toolchain/meetingcore/pkg/database"
	"github.com/codeready-toolchain/meetingcore/test/util"
	"github.com/stretchr/testify/require"
)

// SharedTestDB creates a single PostgreSQL schema that can be shared by
// multiple test replicas. Each replica gets its own connection pool via
// NewClient, but all pools point to the same schema — enabling cross-replica
// tests, such as several worker pools claiming from one job queue.
type SharedTestDB struct {
	baseConnStr string
	schemaName  string
}

// NewSharedTestDB creates a shared test schema, runs migrations once, and
// registers t.Cleanup to drop the schema. Call NewClient to create
// independent database clients for each replica.
func NewSharedTestDB(t *testing.T) *SharedTestDB {
	t.Helper()
	ctx := context.Background()

	baseConnStr := util.GetBaseConnectionString(t)
	schemaName := util.GenerateSchemaName(t)

	db, err := stdsql.Open("pgx", baseConnStr)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schemaName))
	require.NoError(t, err)
	t.Logf("SharedTestDB: created schema %s", schemaName)
	_ = db.Close()

	// Run migrations once, against the shared schema, via a throwaway client.
	migrationClient, err := database.NewClient(ctx, cfgForSchema(t, baseConnStr, schemaName))
	require.NoError(t, err)
	migrationClient.Close()

	s := &SharedTestDB{baseConnStr: baseConnStr, schemaName: schemaName}

	// Drop the schema after all replicas have shut down (LIFO order
	// guarantees cleanups registered later, such as each NewClient's, run
	// before this one).
	t.Cleanup(func() {
		cleanDB, err := stdsql.Open("pgx", baseConnStr)
		if err != nil {
			t.Logf("SharedTestDB: warning: could not connect to drop schema %s: %v", schemaName, err)
			return
		}
		defer func() { _ = cleanDB.Close() }()
		_, err = cleanDB.ExecContext(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
		if err != nil {
			t.Logf("SharedTestDB: warning: failed to drop schema %s: %v", schemaName, err)
		}
	})

	return s
}

// NewClient creates an independent *database.Client backed by a fresh
// connection pool to the shared schema. Each client has its own pool so
// replicas can be shut down independently without races. Cleaned up via
// t.Cleanup.
func (s *SharedTestDB) NewClient(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	client, err := database.NewClient(ctx, cfgForSchema(t, s.baseConnStr, s.schemaName))
	require.NoError(t, err)

	t.Cleanup(client.Close)

	return client
}

// cfgForSchema builds a database.Config for baseConnStr pinned to schemaName
// via Config.SearchPath — every connection opened from it, including the
// migration runner's, lands in that schema.
func cfgForSchema(t *testing.T, baseConnStr, schemaName string) database.Config {
	t.Helper()
	u, err := url.Parse(baseConnStr)
	require.NoError(t, err)

	password, _ := u.User.Password()
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return database.Config{
		Host:         u.Hostname(),
		Port:         port,
		User:         u.User.Username(),
		Password:     password,
		Database:     trimLeadingSlash(u.Path),
		SSLMode:      sslMode,
		SearchPath:   schemaName,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}
}

func trimLeadingSlash(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}
