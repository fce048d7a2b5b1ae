package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmesh/a2a-connector/db/migrations"
)

// GetTestDatabasePool creates a database connection pool for testing
func GetTestDatabasePool(ctx context.Context) (*pgxpool.Pool, error) {
	databaseURL := buildDatabaseURL()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// buildDatabaseURL constructs the database URL from environment variables
func buildDatabaseURL() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	dbname := os.Getenv("POSTGRES_DB")
	if dbname == "" {
		dbname = "a2a_connector_test"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=prefer",
		user, password, host, port, dbname)
}

// TestDatabase provides database utilities for testing
type TestDatabase struct {
	Pool *pgxpool.Pool
	ctx  context.Context
}

// NewTestDatabase creates a new test database instance with the schema
// applied. Skips the test when no database is reachable.
func NewTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	pool, err := GetTestDatabasePool(ctx)
	if err != nil {
		t.Skipf("Test database unavailable: %v", err)
	}

	if err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return &TestDatabase{
		Pool: pool,
		ctx:  ctx,
	}
}

// Close closes the database connection
func (db *TestDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// CleanupTenant removes every row the given tenant owns. Cascades cover the
// dependent tables.
func (db *TestDatabase) CleanupTenant(t *testing.T, tenantID uuid.UUID) {
	_, err := db.Pool.Exec(db.ctx, `DELETE FROM tenant WHERE id = $1`, tenantID)
	if err != nil {
		t.Logf("Warning: Failed to cleanup tenant %s: %v", tenantID, err)
	}
}

// CreateTestTenant creates a tenant and returns its ID
func (db *TestDatabase) CreateTestTenant(t *testing.T, name string) uuid.UUID {
	var tenantID uuid.UUID
	err := db.Pool.QueryRow(db.ctx,
		`INSERT INTO tenant (name) VALUES ($1) RETURNING id`, name,
	).Scan(&tenantID)
	if err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}
	return tenantID
}

// CreateTestAgent creates an agent inside the tenant and returns its ID
func (db *TestDatabase) CreateTestAgent(t *testing.T, tenantID uuid.UUID, name string) uuid.UUID {
	var agentID uuid.UUID
	err := db.Pool.QueryRow(db.ctx,
		`INSERT INTO agent (tenant_id, name) VALUES ($1, $2) RETURNING id`,
		tenantID, name,
	).Scan(&agentID)
	if err != nil {
		t.Fatalf("Failed to create test agent: %v", err)
	}
	return agentID
}

// CreateTestUser creates a user in the tenant and returns the user ID
func (db *TestDatabase) CreateTestUser(t *testing.T, tenantID uuid.UUID, email, password string) uuid.UUID {
	hashed, err := db.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	var userID uuid.UUID
	err = db.Pool.QueryRow(db.ctx,
		`INSERT INTO application_user (status, email, hashed_password)
		 VALUES ('ACTIVE', $1, $2)
		 RETURNING id`,
		email, hashed,
	).Scan(&userID)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	_, err = db.Pool.Exec(db.ctx,
		`INSERT INTO tenant_user (tenant_id, user_id) VALUES ($1, $2)`,
		tenantID, userID,
	)
	if err != nil {
		t.Fatalf("Failed to link test user to tenant: %v", err)
	}

	return userID
}

// CreateTestSubscription registers a subscriber for a task and returns the
// subscription ID
func (db *TestDatabase) CreateTestSubscription(t *testing.T, tenantID uuid.UUID, taskID, subscriberID string) uuid.UUID {
	var subscriptionID uuid.UUID
	err := db.Pool.QueryRow(db.ctx,
		`INSERT INTO task_subscription (tenant_id, task_id, subscriber_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		tenantID, taskID, subscriberID,
	).Scan(&subscriptionID)
	if err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}
	return subscriptionID
}

// CountEventsForTask returns the number of events recorded for a task
func (db *TestDatabase) CountEventsForTask(t *testing.T, tenantID uuid.UUID, taskID string) int {
	var count int
	err := db.Pool.QueryRow(db.ctx,
		`SELECT COUNT(*) FROM task_event WHERE tenant_id = $1 AND task_id = $2`,
		tenantID, taskID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	return count
}

// CountDeliveries returns the number of deliveries in the given status for a
// task's events
func (db *TestDatabase) CountDeliveries(t *testing.T, tenantID uuid.UUID, taskID, status string) int {
	var count int
	err := db.Pool.QueryRow(db.ctx,
		`SELECT COUNT(*)
		 FROM task_event_delivery d
		 JOIN task_event e ON e.id = d.event_id
		 WHERE e.tenant_id = $1 AND e.task_id = $2 AND d.status = $3`,
		tenantID, taskID, status,
	).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count deliveries: %v", err)
	}
	return count
}

// HashPassword hashes a password using bcrypt for testing
func (db *TestDatabase) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}
