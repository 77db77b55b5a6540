package remote

import (
	"context"
	"io"
	"net/http"
)

// FetchObject retrieves a server object (game icons, banners, store media) by
// its object id, caching every hit. With offline set, only the cache is
// consulted — expired entries included, stale art beats no art.
func (c *Client) FetchObject(ctx context.Context, objectID string, offline bool) (*CachedObject, error) {
	key := "object/" + objectID

	cached, cacheErr := c.cache.Get(key)
	if offline {
		if cacheErr != nil {
			return nil, cacheErr
		}
		return cached, nil
	}
	if cacheErr == nil && !cached.Expired() {
		return cached, nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/client/object/"+objectID, nil, nil, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// Network trouble degrades to the stale entry when there is one.
		if cacheErr == nil {
			return cached, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeServerError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")

	if err := c.cache.Set(key, contentType, body); err != nil {
		c.log.Warn("could not cache object", "object", objectID, "error", err)
	}

	return &CachedObject{ContentType: contentType, Body: body}, nil
}
