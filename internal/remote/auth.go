package remote

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

// SignNonce signs the ASCII millisecond timestamp with the client's handshake
// private key (ed25519 in PKCS#8 PEM) and returns the base64 signature.
func SignNonce(privatePEM, nonce string) (string, error) {
	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		return "", fmt.Errorf("failed to decode private key PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return "", fmt.Errorf("private key is not ed25519")
	}

	sig := ed25519.Sign(key, []byte(nonce))
	return base64.StdEncoding.EncodeToString(sig), nil
}

// AuthorizationHeader builds the `Nonce <client_id> <millis> <sig>` header
// every authenticated request carries.
func (c *Client) AuthorizationHeader() (string, error) {
	rec, err := c.db.Auth()
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrNotAuthenticated
	}

	nonce := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig, err := SignNonce(rec.PrivateKey, nonce)
	if err != nil {
		return "", fmt.Errorf("failed to generate authorization header: %w", err)
	}

	return fmt.Sprintf("Nonce %s %s %s", rec.ClientID, nonce, sig), nil
}

type capabilityConfiguration struct{}

type initiateRequestBody struct {
	Name         string                             `json:"name"`
	Platform     string                             `json:"platform"`
	Capabilities map[string]capabilityConfiguration `json:"capabilities"`
	Mode         string                             `json:"mode"`
}

type handshakeRequestBody struct {
	ClientID string `json:"clientId"`
	Token    string `json:"token"`
}

// HandshakeResponse is the certificate material the server issues once.
type HandshakeResponse struct {
	Private     string `json:"private"`
	Certificate string `json:"certificate"`
	ID          string `json:"id"`
}

// AuthInitiate starts the sign-in flow and returns the redirect URL the
// frontend opens in a browser.
func (c *Client) AuthInitiate(mode string) (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "drop-client"
	}

	body := initiateRequestBody{
		Name:     fmt.Sprintf("%s (Desktop)", hostname),
		Platform: runtime.GOOS,
		Capabilities: map[string]capabilityConfiguration{
			"peerAPI":    {},
			"cloudSaves": {},
		},
		Mode: mode,
	}

	text, err := c.postText("/api/v1/client/auth/initiate", body, false)
	if err != nil {
		return "", fmt.Errorf("could not start handshake: %w", err)
	}
	return text, nil
}

// Handshake exchanges the browser-issued token for the client certificate.
// The caller persists the result.
func (c *Client) Handshake(clientID, token string) (*HandshakeResponse, error) {
	var resp HandshakeResponse
	err := c.postJSON("/api/v1/client/auth/handshake", handshakeRequestBody{
		ClientID: clientID,
		Token:    token,
	}, &resp, false)
	if err != nil {
		return nil, fmt.Errorf("failed to complete handshake: %w", err)
	}
	return &resp, nil
}

// FetchWebToken requests a short-lived bearer token for the embedded store view.
func (c *Client) FetchWebToken() (string, error) {
	return c.postText("/api/v1/client/user/webtoken", nil, true)
}
