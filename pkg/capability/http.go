package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPCapability POSTs the arguments as JSON and returns the response body.
type HTTPCapability struct {
	manifest Manifest
	url      string
	client   *http.Client
}

func NewHTTPCapability(m Manifest, url string, timeout time.Duration) *HTTPCapability {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCapability{
		manifest: m,
		url:      url,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPCapability) Manifest() Manifest { return c.manifest }

func (c *HTTPCapability) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(args))
	if err != nil {
		return nil, &InvocationError{Capability: c.manifest.Name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &InvocationError{Capability: c.manifest.Name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &InvocationError{Capability: c.manifest.Name, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &InvocationError{
			Capability: c.manifest.Name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", bytes.TrimSpace(body)),
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(body) {
		// Plain-text services are wrapped so the result is always structured.
		wrapped, _ := json.Marshal(map[string]string{"result": string(body)})
		return wrapped, nil
	}
	return body, nil
}
