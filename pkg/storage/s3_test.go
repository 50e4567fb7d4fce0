package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		store, err := New(Config{Bucket: "proxy-configs", AccessKey: "ak", SecretKey: "sk"})
		require.NoError(t, err)
		require.NotNil(t, store.client)
		require.Equal(t, DefaultRegion, store.cfg.Region)
		require.Equal(t, int64(DefaultMaxObjectSize), store.cfg.MaxObjectSize)
	})

	t.Run("custom endpoint", func(t *testing.T) {
		t.Parallel()

		store, err := New(Config{
			Bucket:    "proxy-configs",
			AccessKey: "ak",
			SecretKey: "sk",
			Endpoint:  "http://localhost:9000",
			PathStyle: true,
			Prefix:    "edge",
		})
		require.NoError(t, err)
		require.Equal(t, "s3://proxy-configs/edge", store.String())
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()

		_, err := New(Config{Bucket: "proxy-configs"})
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.False(t, Config{}.Enabled())
	})
}

func TestS3_Key(t *testing.T) {
	t.Parallel()

	store, err := New(Config{Bucket: "b", AccessKey: "ak", SecretKey: "sk", Prefix: "proxy"})
	require.NoError(t, err)

	require.Equal(t, "proxy/nginx/shop.example.com.conf", store.Key("nginx", "shop.example.com.conf"))
	require.Equal(t, "proxy/nginx/etc/passwd", store.Key("nginx", "../../etc/passwd"))
	require.Equal(t, "proxy/apache/x.conf", store.Key("/apache/", " ", "x.conf"))
}

func TestS3_PutEmpty(t *testing.T) {
	t.Parallel()

	store, err := New(Config{Bucket: "b", AccessKey: "ak", SecretKey: "sk"})
	require.NoError(t, err)
	require.ErrorIs(t, store.Put(context.Background(), "k", nil, "text/plain"), ErrEmptyObject)
}
