//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), testMetrics())
}

func TestSmoke_ResolvePlace(t *testing.T) {
	c := smokeClient(t)

	p, err := c.ResolvePlace(context.Background(), "Seattle, WA")
	require.NoError(t, err)
	assert.InDelta(t, 47.6, p.Lat, 0.5)
	assert.InDelta(t, -122.3, p.Lon, 0.5)
	assert.Contains(t, p.Address, "Seattle")
}

func TestSmoke_DescribeLocation(t *testing.T) {
	c := smokeClient(t)

	p, err := c.DescribeLocation(context.Background(), 47.6038, -122.3301)
	require.NoError(t, err)
	assert.Contains(t, p.Address, "Seattle")
}
