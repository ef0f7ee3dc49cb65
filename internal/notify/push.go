package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushSender posts messages to a push-provider HTTP endpoint, falling back
// from a live websocket session when one exists.
type PushSender struct {
	Endpoint string
	Key      string
	Client   *http.Client
	WS       *WSRegistry
}

func NewPushSender(endpoint, key string, ws *WSRegistry) *PushSender {
	return &PushSender{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}, WS: ws}
}

func (p *PushSender) Send(ctx context.Context, recipientID string, msg Message) error {
	if p.WS != nil {
		if err := p.WS.Send(ctx, recipientID, msg); err == nil {
			return nil
		}
	}
	body := map[string]interface{}{"recipient": recipientID, "message": msg}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Key != "" {
		req.Header.Set("Authorization", "Bearer "+p.Key)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push provider returned %d", resp.StatusCode)
	}
	return nil
}
