// Package api implements the DTE Energy customer client and the
// one-shot historical usage backfill.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/calumet/energy-bridge/internal/usage"
)

const (
	defaultPortalURL = "https://newlook.dteenergy.com/api"
	defaultUsageURL  = "https://api.customer.sites.dteenergy.com/public/usage/authenticated"
)

// Credentials holds the portal login and the usage API subscription
// key.
type Credentials struct {
	Username        string
	Password        string
	SubscriptionKey string
}

// Client talks to the DTE customer portal and usage report API. The
// HTTP session is scoped to one run: the cookie jar holds the portal
// session and is discarded with the client. Requests are paced to stay
// polite toward the portal.
type Client struct {
	// PortalURL and UsageURL default to the production endpoints and
	// are overridable for tests.
	PortalURL string
	UsageURL  string

	creds   Credentials
	http    *http.Client
	limiter *rate.Limiter

	bearer string
}

func NewClient(creds Credentials) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		PortalURL: defaultPortalURL,
		UsageURL:  defaultUsageURL,
		creds:     creds,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}

// SignIn establishes the portal session and captures the bearer token
// the usage API requires.
func (c *Client) SignIn(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": c.creds.Username,
		"password": c.creds.Password,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PortalURL+"/signIn", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	resp.Body.Close()

	// The user-details body is the raw bearer token.
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.PortalURL+"/getUserDetails", nil)
	if err != nil {
		return err
	}
	resp, err = c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("user details: %w", err)
	}
	defer resp.Body.Close()

	token, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("user details: %w", err)
	}
	c.bearer = "Bearer " + string(token)
	return nil
}

// AccountNumber returns the first account on the signed-in profile.
func (c *Client) AccountNumber(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PortalURL+"/accounts", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("accounts: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Accounts []struct {
			AccountNumber string `json:"accountNumber"`
		} `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("accounts: decode: %w", err)
	}
	if len(payload.Accounts) == 0 {
		return "", fmt.Errorf("accounts: none on profile")
	}
	return payload.Accounts[0].AccountNumber, nil
}

// UsageReport fetches the hourly electric usage report between the
// given calendar dates, inclusive.
func (c *Client) UsageReport(ctx context.Context, account string, start, end time.Time) ([]usage.DaySample, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/usage/report/electric", c.UsageURL, url.PathEscape(account))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("startDate", start.Format("2006-01-02"))
	q.Set("endDate", end.Format("2006-01-02"))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Ocp-Apim-Subscription-Key", c.creds.SubscriptionKey)
	req.Header.Set("Authorization", c.bearer)

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("usage report: %w", err)
	}
	defer resp.Body.Close()

	var report struct {
		Usage []usage.DaySample `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("usage report: decode: %w", err)
	}
	return report.Usage, nil
}
