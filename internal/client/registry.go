package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MarketplaceClient calls the marketplace backend that owns the server-side
// wallet records. Only the public key and the wallet name ever cross this
// boundary; the backend cannot reconstruct anything else.
type MarketplaceClient struct {
	baseURL string
	client  *http.Client
}

// NewMarketplaceClient creates a client for the marketplace wallet API.
func NewMarketplaceClient(baseURL string) *MarketplaceClient {
	return &MarketplaceClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type createWalletRequest struct {
	PublicKey string `json:"publicKey"`
	Name      string `json:"name"`
}

type createWalletError struct {
	Error string `json:"error"`
}

// CreateWallet registers a wallet record {publicKey, name} server-side.
func (c *MarketplaceClient) CreateWallet(ctx context.Context, publicKey, name string) error {
	body, err := json.Marshal(createWalletRequest{PublicKey: publicKey, Name: name})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/api/wallets", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach marketplace: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr createWalletError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("marketplace rejected wallet: %s", apiErr.Error)
		}
		return fmt.Errorf("marketplace rejected wallet: status %d", resp.StatusCode)
	}

	return nil
}
