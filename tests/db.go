package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/storage/database"
	mongorepos "github.com/trezcool/elimu/storage/mongodb"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// PrepareDB opens a migrated, emptied Postgres database, configured by the TEST_DATABASE_* env vars.
// The test is skipped when TEST_DATABASE_HOST is not set.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}

	conf := NewConfig()
	conf.Database = core.DatabaseConfig{
		Engine:     "postgres",
		Host:       host,
		Port:       getenv("TEST_DATABASE_PORT", "5432"),
		Name:       getenv("TEST_DATABASE_NAME", "elimu_test"),
		User:       getenv("TEST_DATABASE_USER", "postgres"),
		Password:   getenv("TEST_DATABASE_PASSWORD", "postgres"),
		DisableTLS: true,
	}

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	if _, err = db.Exec(`TRUNCATE users`); err != nil {
		t.Fatalf("truncating users failed: %v", err)
	}
	return db
}

// PrepareMongo opens an emptied MongoDB database at TEST_MONGO_URI.
// The test is skipped when TEST_MONGO_URI is not set.
func PrepareMongo(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	conf := NewConfig()
	conf.Mongo = core.MongoConfig{
		URI:     uri,
		Name:    getenv("TEST_MONGO_NAME", "elimu_test"),
		Timeout: 10 * time.Second,
	}

	ctx := context.Background()
	db, err := mongorepos.Open(ctx, conf)
	if err != nil {
		t.Fatalf("mongorepos.Open() failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = mongorepos.Close(db)
	})

	for _, coll := range []string{"courses", "notifications"} {
		if _, err = db.Collection(coll).DeleteMany(ctx, map[string]interface{}{}); err != nil {
			t.Fatalf("emptying %s failed: %v", coll, err)
		}
	}
	return db
}
