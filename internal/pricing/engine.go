package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// ErrUnknownServiceType signals the pricing collaborator cannot recompute
// for this service type. Verification falls back to the original price.
var ErrUnknownServiceType = errors.New("pricing: unknown service type")

// Engine recomputes a price from inputs, keyed by service type. The
// concrete formulas live in the external pricing service.
type Engine interface {
	Recompute(ctx context.Context, st models.ServiceType, inputs models.PricingInputs) (float64, error)
}

// HTTPEngine calls the pricing service over HTTP.
type HTTPEngine struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPEngine(endpoint string) *HTTPEngine {
	return &HTTPEngine{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

func (e *HTTPEngine) Recompute(ctx context.Context, st models.ServiceType, inputs models.PricingInputs) (float64, error) {
	payload := struct {
		ServiceType models.ServiceType   `json:"service_type"`
		Inputs      models.PricingInputs `json:"inputs"`
	}{ServiceType: st, Inputs: inputs}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint+"/v1/prices/recompute", bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrUnknownServiceType
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pricing service returned %d", resp.StatusCode)
	}
	var out struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Price, nil
}
