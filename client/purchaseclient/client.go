package purchaseclient

import (
	"context"
	"encoding/json"
	"net/http"
	"procurement/common"
	"procurement/domain/stage"
	"procurement/infra/tracing"
	"strings"
	"time"

	"github.com/fundwit/go-commons/types"
	"golang.org/x/time/rate"
)

const DefaultTimeout = 30 * time.Second

// Client calls the purchase backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Limiter throttles outgoing requests when set.
	Limiter *rate.Limiter
}

func New(baseURL string, limiter *rate.Limiter) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Transport: &tracing.TracingTransport{}, Timeout: DefaultTimeout},
		Limiter:    limiter,
	}
}

type purchaseStagesResponse struct {
	FlowStages []stage.Stage `json:"flow_stages"`
}

// UpdatePurchaseStages replaces the flow of a purchase and returns the persisted flow stages.
// A non-2xx response is reported as *common.ErrHttpInvoke.
func (c *Client) UpdatePurchaseStages(ctx context.Context, purchaseID types.ID, update stage.FlowUpdate) ([]stage.Stage, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqBody, err := json.Marshal(update)
	if err != nil {
		return nil, err
	}
	url := c.BaseURL + "/v1/purchases/" + purchaseID.String()
	respBody, err := common.HttpInvokeJson(ctx, c.HTTPClient, http.MethodPatch, url, nil, string(reqBody))
	if err != nil {
		return nil, err
	}

	resp := purchaseStagesResponse{}
	if err := json.Unmarshal([]byte(respBody), &resp); err != nil {
		return nil, err
	}
	return resp.FlowStages, nil
}
