package network

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rchasman/dominion-maker-sub001/consensus"
	"github.com/rchasman/dominion-maker-sub001/move"
)

// Client is a proposer whose answers come from a remote Server.
type Client struct {
	id      string
	baseURL string
	tls     *tls.Config
	http    *http.Client
}

type ClientOption func(*Client) error

// WithTrustedCert switches to https and trusts only the PEM certificate.
func WithTrustedCert(pem []byte) ClientOption {
	return func(c *Client) error {
		pool, err := CertPool(pem)
		if err != nil {
			return err
		}
		c.tls = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
		return nil
	}
}

// WithInsecureSkipVerify switches to https without verifying the server.
func WithInsecureSkipVerify() ClientOption {
	return func(c *Client) error {
		c.tls = &tls.Config{InsecureSkipVerify: true, MinVersion: tls.VersionTLS12}
		return nil
	}
}

// NewClient returns a proposer named id that calls the server at address
// (host:port).
func NewClient(id, address string, opts ...ClientOption) (*Client, error) {
	c := &Client{id: id}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("client %s: %w", id, err)
		}
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	scheme := "http"
	if c.tls != nil {
		transport.TLSClientConfig = c.tls
		scheme = "https"
	}
	c.baseURL = scheme + "://" + address
	c.http = &http.Client{Transport: transport}
	return c, nil
}

func (c *Client) ID() string { return c.id }

func (c *Client) Propose(ctx context.Context, req consensus.Request) (move.Action, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return move.Action{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/propose", bytes.NewReader(body))
	if err != nil {
		return move.Action{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return move.Action{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return move.Action{}, remoteError(resp)
	}
	var w move.Wire
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return move.Action{}, fmt.Errorf("decode proposal: %w", err)
	}
	return move.FromWire(w)
}

// Health asks the server for its proposer id.
func (c *Client) Health(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", remoteError(resp)
	}
	var h healthBody
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return "", err
	}
	return h.ID, nil
}

func remoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e errorBody
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return fmt.Errorf("remote status %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("remote status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
