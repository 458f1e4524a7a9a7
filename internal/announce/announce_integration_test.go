//go:build integration

package announce

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Redis container")

	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err)

	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s", host, port.Port())
}

func TestAnnouncer_RealRedis(t *testing.T) {
	redisURL := setupRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := NewAnnouncer(redisURL)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Ping(ctx))

	sub, err := a.Subscribe(ctx, "paper")
	require.NoError(t, err)
	defer sub.Close()

	record := testRecord(t, "1.21.1", 42)
	require.NoError(t, a.Announce(ctx, record))

	select {
	case got := <-sub.Events():
		assert.Equal(t, record.ID, got.ID)
	case <-ctx.Done():
		t.Fatal("timeout waiting for build event")
	}

	stored, err := a.Get(ctx, "paper", "1.21.1", 42)
	require.NoError(t, err)
	assert.Equal(t, record.Downloads, stored.Downloads)

	latest, err := a.Latest(ctx, "paper", "1.21.1")
	require.NoError(t, err)
	assert.Equal(t, 42, latest)
}
