package remote

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchObjectCachesResponses(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/client/object/obj-1", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50})
	})
	client, _ := testClient(t, mux)

	obj, err := client.FetchObject(context.Background(), "obj-1", false)
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)

	// Second fetch is served from cache.
	_, err = client.FetchObject(context.Background(), "obj-1", false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchObjectOfflineUsesCacheOnly(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/client/object/obj-1", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("fresh"))
	})
	client, _ := testClient(t, mux)

	// Nothing cached yet: offline read misses without touching the network.
	_, err := client.FetchObject(context.Background(), "obj-1", true)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, int32(0), hits.Load())

	// Warm the cache online, then offline reads never hit the server again.
	_, err = client.FetchObject(context.Background(), "obj-1", false)
	require.NoError(t, err)

	obj, err := client.FetchObject(context.Background(), "obj-1", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), obj.Body)
	assert.Equal(t, int32(1), hits.Load())
}
