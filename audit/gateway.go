package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GatewayLedger is a Ledger that submits entries to a hosted ledger
// gateway over HTTP, authenticating every request with an HS256
// bearer JWT. Grounded on the teacher's cmd/agentflow/middleware.go
// JWT verification middleware: this is the client-side mirror, the
// gateway being assumed to run the teacher's same HS256-keyed
// validation on the receiving end.
type GatewayLedger struct {
	endpoint   string
	secret     []byte
	issuer     string
	httpClient *http.Client
	tokenTTL   time.Duration
}

// GatewayConfig configures a GatewayLedger.
type GatewayConfig struct {
	Endpoint string
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	Timeout  time.Duration
}

// NewGatewayLedger builds a GatewayLedger.
func NewGatewayLedger(cfg GatewayConfig) *GatewayLedger {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = time.Minute
	}

	return &GatewayLedger{
		endpoint:   cfg.Endpoint,
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		httpClient: &http.Client{Timeout: timeout},
		tokenTTL:   tokenTTL,
	}
}

type appendRequest struct {
	Topic string `json:"topic"`
	Entry []byte `json:"entry"`
}

type appendResponse struct {
	TransactionID string `json:"transactionId"`
}

// Append POSTs entry to the gateway's /ledger/append endpoint with a
// freshly minted bearer token, and returns the gateway-assigned
// transaction id.
func (g *GatewayLedger) Append(ctx context.Context, topic string, entry []byte) (string, error) {
	token, err := g.signToken()
	if err != nil {
		return "", fmt.Errorf("sign gateway token: %w", err)
	}

	body, err := json.Marshal(appendRequest{Topic: topic, Entry: entry})
	if err != nil {
		return "", fmt.Errorf("marshal append request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/ledger/append", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(data))
	}

	var out appendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}

	return out.TransactionID, nil
}

// Close is a no-op: the gateway client holds no persistent connection.
func (g *GatewayLedger) Close(ctx context.Context) error { return nil }

// signToken mints a short-lived HS256 bearer token for one gateway
// call, mirroring the claim shape the teacher's JWT middleware
// expects (iss, exp, standard registered claims).
func (g *GatewayLedger) signToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": g.issuer,
		"iat": now.Unix(),
		"exp": now.Add(g.tokenTTL).Unix(),
		"sub": "oracled-audit-logger",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}
