// Package identity implements an HTTP/JSON client for the identity
// registry collaborator of spec.md §1: the source of truth for a token's
// launch time, creator wallet, and any designated-claim reassignment.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/authz"
)

var log = build.NewSubLogger("IDTY", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Client is an HTTP/JSON client for the identity registry, implementing
// both authz.Registry and the launch-time lookup eligibility.Compute needs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	macaroon   string
}

// New constructs a Client against baseURL (e.g.
// "https://identity.internal.solmint.dev") with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithMacaroon attaches a base64-encoded macaroon as a bearer credential on
// every outbound request, mirroring dcrlnd's macaroon-authenticated RPC
// calls (here, HTTP in place of gRPC metadata).
func (c *Client) WithMacaroon(base64Macaroon string) *Client {
	c.macaroon = base64Macaroon
	return c
}

type tokenLaunchResponse struct {
	LaunchUnixMs int64 `json:"launchUnixMs"`
}

// GetTokenLaunchTime fetches a token's launch instant. A 404 response
// returns ErrNotFound, which the engine maps to engine.ErrTokenUnknown.
func (c *Client) GetTokenLaunchTime(ctx context.Context, token solana.PublicKey) (time.Time, error) {
	var resp tokenLaunchResponse
	if err := c.getJSON(ctx, "/v1/tokens/"+token.String()+"/launch", &resp); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(resp.LaunchUnixMs), nil
}

type creatorWalletResponse struct {
	CreatorWallet *string `json:"creatorWallet"`
}

// GetTokenCreatorWallet implements authz.Registry.
func (c *Client) GetTokenCreatorWallet(ctx context.Context, token solana.PublicKey) (*solana.PublicKey, error) {
	var resp creatorWalletResponse
	if err := c.getJSON(ctx, "/v1/tokens/"+token.String()+"/creator", &resp); err != nil {
		return nil, err
	}
	if resp.CreatorWallet == nil {
		return nil, nil
	}
	pk, err := authz.TrimmedPublicKey(*resp.CreatorWallet)
	if err != nil {
		return nil, fmt.Errorf("parsing creator wallet: %w", err)
	}
	return &pk, nil
}

type designatedClaimResponse struct {
	OriginalLauncher string  `json:"originalLauncher"`
	VerifiedExternal *string `json:"verifiedExternalWallet"`
	VerifiedEmbedded *string `json:"verifiedEmbeddedWallet"`
}

// GetDesignatedClaimByToken implements authz.Registry.
func (c *Client) GetDesignatedClaimByToken(ctx context.Context, token solana.PublicKey) (*authz.DesignatedRecord, error) {
	var resp *designatedClaimResponse
	if err := c.getJSON(ctx, "/v1/tokens/"+token.String()+"/designated-claim", &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}

	launcher, err := authz.TrimmedPublicKey(resp.OriginalLauncher)
	if err != nil {
		return nil, fmt.Errorf("parsing original launcher: %w", err)
	}

	rec := &authz.DesignatedRecord{OriginalLauncher: launcher}
	if resp.VerifiedExternal != nil {
		pk, err := authz.TrimmedPublicKey(*resp.VerifiedExternal)
		if err != nil {
			return nil, fmt.Errorf("parsing verified external wallet: %w", err)
		}
		rec.VerifiedExternal = &pk
	}
	if resp.VerifiedEmbedded != nil {
		pk, err := authz.TrimmedPublicKey(*resp.VerifiedEmbedded)
		if err != nil {
			return nil, fmt.Errorf("parsing verified embedded wallet: %w", err)
		}
		rec.VerifiedEmbedded = &pk
	}
	return rec, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("building identity registry url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building identity registry request: %w", err)
	}
	if c.macaroon != "" {
		req.Header.Set("Authorization", "Macaroon "+c.macaroon)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling identity registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity registry returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding identity registry response: %w", err)
	}
	return nil
}

// ErrNotFound is returned when the identity registry has no record for a
// requested token, mapped by the engine to engine.ErrTokenUnknown.
var ErrNotFound = fmt.Errorf("identity registry: not found")

var _ authz.Registry = (*Client)(nil)
