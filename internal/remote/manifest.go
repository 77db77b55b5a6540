package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"drop-desktop/internal/database"
)

// ManifestEntry describes one file as a sequence of hashed chunks. Chunk i
// starts at the sum of the preceding lengths.
type ManifestEntry struct {
	Lengths     []int64  `json:"lengths"`
	Checksums   []string `json:"checksums"`
	Permissions uint32   `json:"permissions"`
	VersionName string   `json:"version_name"`
}

// Manifest maps relative file paths to their chunk layout.
type Manifest map[string]ManifestEntry

// TotalLength sums every chunk length in the manifest.
func (m Manifest) TotalLength() int64 {
	var total int64
	for _, entry := range m {
		for _, l := range entry.Lengths {
			total += l
		}
	}
	return total
}

// DownloadContext is the opaque per-version token required on chunk requests.
type DownloadContext struct {
	Context string `json:"context"`
}

// ContextHeader is the request header chunk downloads carry the token in.
const ContextHeader = "Drop-Download-Context"

// FetchManifest downloads the manifest for one (game, version).
func (c *Client) FetchManifest(ctx context.Context, id, version string) (Manifest, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/client/game/manifest", url.Values{
		"id":      {id},
		"version": {version},
	}, nil, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, &ManifestError{Status: resp.StatusCode, Body: string(body)}
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

type contextRequestBody struct {
	Game    string `json:"game"`
	Version string `json:"version"`
}

// FetchDownloadContext obtains the per-version chunk token.
func (c *Client) FetchDownloadContext(game, version string) (*DownloadContext, error) {
	var dc DownloadContext
	if err := c.postJSON("/api/v2/client/context", contextRequestBody{
		Game:    game,
		Version: version,
	}, &dc, true); err != nil {
		return nil, err
	}
	return &dc, nil
}

// ChunkRequestDrop is one byte range in a chunk request body.
type ChunkRequestDrop struct {
	Filename string `json:"filename"`
	Checksum string `json:"checksum"`
	Start    int64  `json:"start"`
	Length   int64  `json:"length"`
	Index    int    `json:"index"`
}

// FetchChunks requests the drops' bytes as one stream, concatenated in request
// order. The caller owns the response body.
func (c *Client) FetchChunks(ctx context.Context, drops []ChunkRequestDrop, contextToken string) (*http.Response, error) {
	payload, err := json.Marshal(map[string]interface{}{"drops": drops})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v2/client/chunk", nil, bytes.NewReader(payload), true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ContextHeader, contextToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.decodeServerError(resp)
	}
	return resp, nil
}

// FetchGameVersion retrieves the post-install metadata for one version.
func (c *Client) FetchGameVersion(ctx context.Context, id, version string) (*database.GameVersionRecord, error) {
	var rec database.GameVersionRecord
	err := c.getJSON(ctx, "/api/v1/client/game/version", url.Values{
		"id":      {id},
		"version": {version},
	}, &rec)
	if err != nil {
		return nil, err
	}
	rec.GameID = id
	rec.VersionName = version
	return &rec, nil
}
