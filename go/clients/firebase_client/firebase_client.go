package firebase_client

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fmartingr/CookieClickerCloudSave/go/clients"
)

// FirebaseClient talks to the Firebase Realtime Database REST API under a
// single base path.
type FirebaseClient struct {
	*clients.BaseClient
	auth string
}

func NewFirebaseClient(baseURL, auth string, timeout time.Duration) *FirebaseClient {
	client := &FirebaseClient{
		BaseClient: clients.NewBaseClient(baseURL),
		auth:       auth,
	}

	client.SetHeader(JsonHeader, JsonContentType)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return client
}

func (c *FirebaseClient) endpoint(key string) string {
	endpoint := "/" + url.PathEscape(key) + JsonSuffix
	if c.auth != "" {
		endpoint += "?" + AuthParam + "=" + url.QueryEscape(c.auth)
	}
	return endpoint
}

// PutValue replaces the node at key with value, which must be valid JSON.
func (c *FirebaseClient) PutValue(ctx context.Context, key string, value []byte) error {
	if _, err := c.Put(ctx, c.endpoint(key), bytes.NewReader(value)); err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}
	return nil
}

// GetValue returns the raw JSON stored at key. The boolean is false when the
// node does not exist.
func (c *FirebaseClient) GetValue(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.Get(ctx, c.endpoint(key))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %q: %w", key, err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || strings.EqualFold(string(trimmed), NullBody) {
		return nil, false, nil
	}
	return trimmed, true, nil
}

// Ping reads the shallow root, which fails fast on a bad URL or rejected auth.
func (c *FirebaseClient) Ping(ctx context.Context) error {
	endpoint := "/" + JsonSuffix + "?shallow=true"
	if c.auth != "" {
		endpoint += "&" + AuthParam + "=" + url.QueryEscape(c.auth)
	}
	if _, err := c.Get(ctx, endpoint); err != nil {
		return fmt.Errorf("failed to reach firebase: %w", err)
	}
	return nil
}
