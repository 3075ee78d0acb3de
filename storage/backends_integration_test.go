//go:build integration

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNATSStoreContract(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	s, err := OpenNATS(context.Background(), url, "SWAGGER2DCAT_TEST", time.Hour)
	require.NoError(t, err)
	defer s.Close()

	testStoreContract(t, s)
}

func TestRedisStoreContract(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	s, err := OpenRedis(context.Background(), url, "swagger2dcat:test:", time.Hour)
	require.NoError(t, err)
	defer s.Close()

	testStoreContract(t, s)
}
