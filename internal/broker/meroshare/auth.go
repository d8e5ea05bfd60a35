package meroshare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ipo_applier/internal/broker"
	"ipo_applier/internal/models"
)

// Session data keys filled in by Login.
const (
	DataDemat      = "demat"
	DataBOID       = "boid"
	DataClientCode = "clientCode"
)

// Login authenticates an account with the 3-step flow:
// 1. GET /capital/ to map the DP code to a client id
// 2. POST /auth/ with credentials; the token is in the Authorization header
// 3. GET /ownDetail/ for the demat and BOID used when applying
func (c *Client) Login(ctx context.Context, account string, creds models.Credentials) (*broker.Session, error) {
	clientID, err := c.clientID(ctx, creds.DP)
	if err != nil {
		return nil, fmt.Errorf("resolving DP: %w", err)
	}

	session, err := c.authenticate(ctx, account, clientID, creds)
	if err != nil {
		return nil, err
	}

	var detail ownDetail
	if err := c.getJSON(ctx, request{method: http.MethodGet, path: "/ownDetail/"}, session, &detail, "own detail"); err != nil {
		return nil, fmt.Errorf("fetching own detail: %w", err)
	}
	session.Data[DataDemat] = detail.Demat
	session.Data[DataBOID] = detail.BOID
	session.Data[DataClientCode] = detail.ClientCode

	c.logger.Info("Logged in", zap.String("account", account), zap.String("dp", creds.DP))
	return session, nil
}

// clientID returns the MeroShare id of a depository participant. The DP
// may be given as its code (e.g. "13700") or its numeric id.
func (c *Client) clientID(ctx context.Context, dp string) (int64, error) {
	dp = strings.TrimSpace(dp)

	c.mu.Lock()
	id, ok := c.capitals[dp]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var capitals []capital
	if err := c.getJSON(ctx, request{method: http.MethodGet, path: "/capital/"}, nil, &capitals, "capitals"); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cp := range capitals {
		c.capitals[cp.Code] = cp.ID
		c.capitals[itoa(cp.ID)] = cp.ID
	}
	if id, ok := c.capitals[dp]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownDP, dp)
}

func (c *Client) authenticate(ctx context.Context, account string, clientID int64, creds models.Credentials) (*broker.Session, error) {
	body := authRequest{
		ClientID: clientID,
		Username: creds.Username,
		Password: creds.Password,
	}

	resp, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/", body: body}, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var ar authResponse
	_ = json.Unmarshal(raw, &ar)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidCredentials
	default:
		msg := ar.Message
		if msg == "" {
			msg = string(raw)
		}
		return nil, fmt.Errorf("login failed: status %d: %s", resp.StatusCode, msg)
	}

	if ar.PasswordExpired || ar.AccountExpired || ar.DematExpired {
		return nil, ErrAccountExpired
	}

	token := resp.Header.Get("Authorization")
	if token == "" {
		return nil, fmt.Errorf("login failed: no authorization token returned")
	}

	return &broker.Session{
		AccountName: account,
		Token:       token,
		Cookies:     resp.Cookies(),
		ExpiresAt:   time.Now().Add(sessionTTL),
		Data:        make(map[string]string),
	}, nil
}
