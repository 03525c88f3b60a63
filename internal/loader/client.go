package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"multical/internal/model"
)

// Request is the body POSTed to the events endpoint. Start and End are unix
// seconds.
type Request struct {
	UIDs  []string `json:"uid"`
	Start int64    `json:"start"`
	End   int64    `json:"end"`
}

func (l *Loader) post(ctx context.Context, endpoint string, uids []string, r model.Range) (model.Payload, error) {
	body, err := json.Marshal(Request{
		UIDs:  uids,
		Start: r.Start.Unix(),
		End:   r.End.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	// Non-2xx response
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, ErrNullPayload
	}

	var payload model.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("JSON decode error: %w", err)
	}
	if payload == nil {
		payload = model.Payload{}
	}
	return payload, nil
}
