package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestC2BPushAccepted(t *testing.T) {
	var gotReq PushRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/ipg/v1x/c2bPayment/singleStage/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(PushResponse{
			ResponseCode:   "0",
			ResponseDesc:   "Request processed successfully",
			ConversationID: "conv-123",
			TransactionID:  "TX99",
		})
	}))
	defer srv.Close()

	client := NewMpesaClient(srv.URL, "api-key-1")
	resp, err := client.C2BPush(context.Background(), PushRequest{
		TransactionReference: "ORD-abc12345",
		CustomerMSISDN:       "258841234567",
		Amount:               "1500.00",
		ThirdPartyReference:  "ORD-1700000000000000000",
		ServiceProviderCode:  "171717",
	})
	require.NoError(t, err)

	assert.True(t, resp.Accepted())
	assert.Equal(t, "conv-123", resp.ConversationID)
	assert.Equal(t, "258841234567", gotReq.CustomerMSISDN)
	assert.Equal(t, "1500.00", gotReq.Amount)

	wantToken := base64.StdEncoding.EncodeToString([]byte("api-key-1"))
	assert.Equal(t, "Bearer "+wantToken, gotAuth)
}

func TestC2BPushRejectionDecodedFromErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(PushResponse{
			ResponseCode: "INS-2006",
			ResponseDesc: "Insufficient balance",
		})
	}))
	defer srv.Close()

	client := NewMpesaClient(srv.URL, "api-key-1")
	resp, err := client.C2BPush(context.Background(), PushRequest{})
	require.NoError(t, err, "a gateway-level rejection is data, not a transport error")

	assert.False(t, resp.Accepted())
	assert.Equal(t, "Insufficient balance", resp.ResponseDesc)
}

func TestC2BPushTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewMpesaClient(srv.URL, "api-key-1")
	_, err := client.C2BPush(context.Background(), PushRequest{})
	assert.Error(t, err)
}
