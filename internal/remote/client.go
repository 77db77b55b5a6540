// Package remote is the client for the Drop server: auth, manifests, download
// contexts, chunk streams and the offline object cache.
package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"drop-desktop/internal/database"
)

const healthcheckTimeout = 3 * time.Second

type Client struct {
	base  *url.URL
	http  *http.Client
	db    *database.DB
	log   *slog.Logger
	cache *ObjectCache
}

// New builds the server client. PEM certificates found under
// <dataRoot>/certificates are appended to the system roots, so self-hosted
// servers with private CAs work out of the box.
func New(baseURL, dataRoot string, db *database.DB, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, ErrInvalidEndpoint
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	loadCertificates(pool, filepath.Join(dataRoot, "certificates"), log)

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{RootCAs: pool},
		DisableCompression:  true, // chunk streams are raw bytes
	}

	return &Client{
		base: base,
		// Chunk transfers have no client-side deadline; the server terminates
		// stalled streams and failures surface as retryable errors.
		http:  &http.Client{Transport: transport},
		db:    db,
		log:   log,
		cache: NewObjectCache(filepath.Join(dataRoot, "cache")),
	}, nil
}

func loadCertificates(pool *x509.CertPool, dir string, log *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug("not loading certificates", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		buf, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn("failed to read certificate file", "file", entry.Name(), "error", err)
			continue
		}
		if !pool.AppendCertsFromPEM(buf) {
			log.Warn("invalid certificate file", "file", entry.Name())
			continue
		}
		log.Info("added certificate bundle", "file", entry.Name())
	}
}

func (c *Client) Cache() *ObjectCache {
	return c.cache
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = path
	u.RawQuery = query.Encode()
	return u.String()
}

type healthcheckResponse struct {
	AppName string `json:"appName"`
}

// Healthcheck probes /api/v1 and verifies this is actually a Drop server.
// This is the only call with a wall-clock timeout.
func (c *Client) Healthcheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/v1", nil), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeServerError(resp)
	}

	var health healthcheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return err
	}
	if health.AppName != "Drop" {
		return fmt.Errorf("%s is not a drop server (app name %q)", c.base, health.AppName)
	}
	return nil
}

// decodeServerError reads a non-200 body into the typed server error, mapping
// nonce rejection onto ErrOutOfSync.
func (c *Client) decodeServerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var serverErr ServerError
	if err := json.Unmarshal(body, &serverErr); err != nil || serverErr.StatusMessage == "" {
		return &ServerError{StatusCode: resp.StatusCode, StatusMessage: string(body)}
	}
	if serverErr.StatusMessage == "Nonce expired" {
		return ErrOutOfSync
	}
	return &serverErr
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, authenticated bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, err
	}
	if authenticated {
		header, err := c.AuthorizationHeader()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", header)
	}
	return req, nil
}

func (c *Client) postJSON(path string, body interface{}, out interface{}, authenticated bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := c.newRequest(context.Background(), http.MethodPost, path, nil, bytes.NewReader(payload), authenticated)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeServerError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postText(path string, body interface{}, authenticated bool) (string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(context.Background(), http.MethodPost, path, nil, reader, authenticated)
	if err != nil {
		return "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.decodeServerError(resp)
	}
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeServerError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
