//go:build integration

// Package testinfra starts throwaway MySQL, Redis and RabbitMQ containers for the
// integration suites.  Tests are skipped when Docker is not available.
package testinfra

import (
	"context"
	"database/sql"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/popcorn-palace/internal/config"
	"github.com/iliyamo/popcorn-palace/internal/database"
)

// SkipIfNoDocker skips the test if the Docker daemon is not reachable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

func start(t *testing.T, req testcontainers.ContainerRequest) (host, port string) {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})
	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("container endpoint: %v", err)
	}
	host, port, err = net.SplitHostPort(endpoint)
	if err != nil {
		t.Fatalf("parse endpoint %q: %v", endpoint, err)
	}
	return host, port
}

// MySQL starts mysql:8.4, migrates the schema and returns an open pool.
func MySQL(t *testing.T) *sql.DB {
	t.Helper()
	SkipIfNoDocker(t)
	host, port := start(t, testcontainers.ContainerRequest{
		Image:        "mysql:8.4",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_DATABASE":      "popcorn",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("3306/tcp"),
			wait.ForLog("port: 3306  MySQL Community Server"),
		).WithStartupTimeout(2 * time.Minute),
	})

	var db *sql.DB
	var err error
	deadline := time.Now().Add(time.Minute)
	for {
		db, err = database.Open("root", "secret", host, port, "popcorn")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Redis starts redis:7-alpine and returns a connected client.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	SkipIfNoDocker(t)
	host, port := start(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	})
	rdb, err := config.NewRedisClient(config.RedisConfig{Addr: host + ":" + port})
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// RabbitMQ starts rabbitmq:3-alpine and returns its AMQP URL.
func RabbitMQ(t *testing.T) string {
	t.Helper()
	SkipIfNoDocker(t)
	host, port := start(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-alpine",
		ExposedPorts: []string{"5672/tcp"},
		// guest may only log in over loopback.
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "popcorn",
			"RABBITMQ_DEFAULT_PASS": "popcorn",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5672/tcp"),
			wait.ForLog("Server startup complete"),
		).WithStartupTimeout(2 * time.Minute),
	})
	return "amqp://popcorn:popcorn@" + net.JoinHostPort(host, port) + "/"
}
