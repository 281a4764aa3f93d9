package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PushRequest asks the gateway to raise a USSD confirmation prompt on the
// buyer's phone (C2B single stage).
type PushRequest struct {
	TransactionReference string `json:"input_TransactionReference"`
	CustomerMSISDN       string `json:"input_CustomerMSISDN"`
	Amount               string `json:"input_Amount"`
	ThirdPartyReference  string `json:"input_ThirdPartyReference"`
	ServiceProviderCode  string `json:"input_ServiceProviderCode"`
}

// PushResponse is the gateway's synchronous answer. ResponseCode "0" means
// "push sent", not "payment completed" — settlement arrives later on the
// webhook.
type PushResponse struct {
	ResponseCode        string `json:"output_ResponseCode"`
	ResponseDesc        string `json:"output_ResponseDesc"`
	ConversationID      string `json:"output_ConversationID"`
	TransactionID       string `json:"output_TransactionID"`
	ThirdPartyReference string `json:"output_ThirdPartyReference"`
}

func (r *PushResponse) Accepted() bool {
	return r.ResponseCode == "0"
}

type Gateway interface {
	C2BPush(ctx context.Context, req PushRequest) (*PushResponse, error)
}

// MpesaClient calls the M-Pesa open API. The bearer token is the API key
// encoded per the gateway's token scheme; the gateway's own crypto is its
// problem, not ours.
type MpesaClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewMpesaClient(baseURL, apiKey string) *MpesaClient {
	return &MpesaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *MpesaClient) C2BPush(ctx context.Context, pushReq PushRequest) (*PushResponse, error) {
	body, err := json.Marshal(pushReq)
	if err != nil {
		return nil, fmt.Errorf("marshal push request: %w", err)
	}

	url := c.baseURL + "/ipg/v1x/c2bPayment/singleStage/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.authToken())
	req.Header.Set("Origin", "*")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call mpesa gateway: %w", err)
	}
	defer resp.Body.Close()

	// The gateway reports rejections through output_ResponseCode in the body,
	// including on non-2xx statuses, so the body is decoded unconditionally.
	var pushResp PushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("decode gateway response (status %d): %w", resp.StatusCode, err)
	}
	return &pushResp, nil
}

func (c *MpesaClient) authToken() string {
	return base64.StdEncoding.EncodeToString([]byte(c.apiKey))
}
