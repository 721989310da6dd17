package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const callerHeader = "X-Swap-Caller"

// SwapClient is a thin SDK over the swap daemon's REST API. All requests
// carry the configured caller identity.
type SwapClient struct {
	BaseURL    string
	Caller     common.Address
	HttpClient *http.Client
}

func NewSwapClient(baseURL string, caller common.Address) *SwapClient {
	return &SwapClient{
		BaseURL: baseURL,
		Caller:  caller,
		HttpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *SwapClient) Initiate(ctx context.Context, params InitiateParams) (common.Hash, error) {
	var result InitiateResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/swaps", params, &result); err != nil {
		return common.Hash{}, err
	}
	return result.SwapID, nil
}

func (c *SwapClient) Claim(ctx context.Context, swapID common.Hash, preimage []byte) error {
	path := fmt.Sprintf("/api/v1/swaps/%s/claim", swapID.Hex())
	return c.do(ctx, http.MethodPost, path, claimParams{Preimage: hexutil.Bytes(preimage)}, nil)
}

func (c *SwapClient) Refund(ctx context.Context, swapID common.Hash) error {
	path := fmt.Sprintf("/api/v1/swaps/%s/refund", swapID.Hex())
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *SwapClient) Get(ctx context.Context, swapID common.Hash) (*SwapResult, error) {
	var result SwapResult
	path := fmt.Sprintf("/api/v1/swaps/%s", swapID.Hex())
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *SwapClient) IsActive(ctx context.Context, swapID common.Hash) (bool, error) {
	var result ActiveResult
	path := fmt.Sprintf("/api/v1/swaps/%s/active", swapID.Hex())
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return false, err
	}
	return result.Active, nil
}

func (c *SwapClient) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(callerHeader, c.Caller.Hex())

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &ApiError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
