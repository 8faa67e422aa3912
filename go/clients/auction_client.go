package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/auction-live/go/internal/models"
)

const (
	statePath          = "/api/state"
	loginPath          = "/api/admin/login"
	verifyPasswordPath = "/api/admin/verify-password"
)

// AuctionClient talks to the authority's REST surface.
type AuctionClient struct {
	*BaseClient
}

func NewAuctionClient(baseURL string) *AuctionClient {
	client := &AuctionClient{
		BaseClient: NewBaseClient(baseURL),
	}
	client.SetHeader("Accept", "application/json")
	return client
}

// FetchState retrieves the full current state document. Callers keep their
// previous state when this fails.
func (c *AuctionClient) FetchState(ctx context.Context) (*models.StateDocument, error) {
	body, err := c.Get(ctx, statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	var doc models.StateDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &doc, nil
}

type passwordRequest struct {
	Password string `json:"password"`
}

// VerifyPassword asks the authority whether a control-room password is valid.
func (c *AuctionClient) VerifyPassword(ctx context.Context, password string) (bool, error) {
	payload, err := json.Marshal(passwordRequest{Password: password})
	if err != nil {
		return false, fmt.Errorf("failed to marshal password request: %w", err)
	}

	body, err := c.Post(ctx, verifyPasswordPath, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to verify password: %w", err)
	}

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to unmarshal verify response: %w", err)
	}
	return resp.OK, nil
}

// Login exchanges a password for the opaque session token that is later
// asserted on the live channel with admin:auth.
func (c *AuctionClient) Login(ctx context.Context, password string) (string, error) {
	payload, err := json.Marshal(passwordRequest{Password: password})
	if err != nil {
		return "", fmt.Errorf("failed to marshal login request: %w", err)
	}

	body, err := c.Post(ctx, loginPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to login: %w", err)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login response did not include a token")
	}
	return resp.Token, nil
}
