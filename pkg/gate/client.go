package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// HTTPDecisionClient calls the entitlement server's decision endpoint.
type HTTPDecisionClient struct {
	baseURL  string
	client   *http.Client
	decorate func(*http.Request)
}

// HTTPDecisionClientOption configures an HTTPDecisionClient.
type HTTPDecisionClientOption func(*HTTPDecisionClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(client *http.Client) HTTPDecisionClientOption {
	return func(c *HTTPDecisionClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRequestDecorator registers a hook that runs on every outgoing request,
// typically to attach the session credential the auth system expects.
func WithRequestDecorator(fn func(*http.Request)) HTTPDecisionClientOption {
	return func(c *HTTPDecisionClient) {
		if fn != nil {
			c.decorate = fn
		}
	}
}

// NewHTTPDecisionClient creates a client against the given server base URL.
func NewHTTPDecisionClient(baseURL string, opts ...HTTPDecisionClientOption) *HTTPDecisionClient {
	c := &HTTPDecisionClient{
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPDecisionClient) Decide(ctx context.Context, featureKey string) (*Decision, error) {
	body, err := json.Marshal(map[string]string{"featureKey": featureKey})
	if err != nil {
		return nil, errors.Join(ErrDecisionRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/access/decide", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Join(ErrDecisionRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.decorate != nil {
		c.decorate(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrDecisionRequestFailed, err)
	}
	defer resp.Body.Close()

	// The verdict is the payload: denials are 200s with a reason code. Any
	// other status is a transport-level failure.
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Join(ErrDecisionRequestFailed,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var decision Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, errors.Join(ErrDecisionRequestFailed, err)
	}
	return &decision, nil
}
