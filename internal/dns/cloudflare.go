// internal/dns/cloudflare.go
//
// Cloudflare custom-hostname client.
//
// Context
// -------
// Custom domains are routed by creating a Cloudflare custom hostname inside
// the platform zone; Cloudflare then validates that the domain CNAMEs to
// our fallback host and flips the hostname from `pending` to `active`.
// That maps 1:1 onto the ProviderClient contract: the custom-hostname id is
// the record ref, and the hostname status is the record status.
//
// Idempotency
// -----------
// Cloudflare has no native idempotency keys, so CreateRecord lists
// hostnames by name first and reuses a match.  The caller's key travels in
// the request so operators can trace a record back to its domain row.
//
// Notes
// -----
// • Transport-level retries (connection resets, 5xx) are handled by
//   go-retryablehttp; saga-level retry policy stays in internal/domain.
// • 4xx responses are permanent, 5xx and transport errors retryable.
package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yanizio/forge/internal/fault"
)

// Cloudflare drives the custom-hostname API for one zone.
type Cloudflare struct {
	apiURL   string
	zoneID   string
	token    string
	fallback string
	hc       *retryablehttp.Client
}

// NewCloudflare builds a client for the given zone.  fallback is the CNAME
// target custom domains must point at.
func NewCloudflare(apiURL, zoneID, token, fallback string) *Cloudflare {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.Logger = nil
	return &Cloudflare{
		apiURL:   apiURL,
		zoneID:   zoneID,
		token:    token,
		fallback: fallback,
		hc:       hc,
	}
}

//
// wire types
//

type customHostname struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	Status   string `json:"status"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type singleResponse struct {
	Success bool           `json:"success"`
	Result  customHostname `json:"result"`
	Errors  []apiError     `json:"errors"`
}

type listResponse struct {
	Success bool             `json:"success"`
	Result  []customHostname `json:"result"`
	Errors  []apiError       `json:"errors"`
}

type createRequest struct {
	Hostname string `json:"hostname"`
	Origin   string `json:"custom_origin_server,omitempty"`
	Key      string `json:"custom_metadata,omitempty"`
}

//
// ProviderClient implementation
//

// CreateRecord lists by hostname first, then creates.  Returns the
// custom-hostname id.
func (c *Cloudflare) CreateRecord(ctx context.Context, name, idempotencyKey string) (string, error) {
	const op = "dns.create_record"

	existing, err := c.listByHostname(ctx, name)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}

	body, _ := json.Marshal(createRequest{
		Hostname: name,
		Origin:   c.fallback,
		Key:      idempotencyKey,
	})

	var out singleResponse
	if err := c.do(ctx, op, http.MethodPost,
		fmt.Sprintf("%s/zones/%s/custom_hostnames", c.apiURL, c.zoneID),
		body, &out); err != nil {
		return "", err
	}
	if !out.Success || out.Result.ID == "" {
		return "", fault.ProviderErr(op, apiErrorsOf(out.Errors), false)
	}
	return out.Result.ID, nil
}

// RecordStatus maps the Cloudflare hostname status onto the trinary
// contract.  A missing record counts as rejected: verification can never
// succeed once the provider has dropped the hostname.
func (c *Cloudflare) RecordStatus(ctx context.Context, ref string) (RecordStatus, error) {
	const op = "dns.record_status"

	var out singleResponse
	err := c.do(ctx, op, http.MethodGet,
		fmt.Sprintf("%s/zones/%s/custom_hostnames/%s", c.apiURL, c.zoneID, ref),
		nil, &out)
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			return StatusRejected, nil
		}
		return "", err
	}

	switch out.Result.Status {
	case "active":
		return StatusActive, nil
	case "blocked", "moved", "deleted":
		return StatusRejected, nil
	default:
		// pending, pending_deletion, and friends
		return StatusPending, nil
	}
}

// DeleteRecord removes the custom hostname.  404 is success.
func (c *Cloudflare) DeleteRecord(ctx context.Context, ref string) error {
	const op = "dns.delete_record"

	err := c.do(ctx, op, http.MethodDelete,
		fmt.Sprintf("%s/zones/%s/custom_hostnames/%s", c.apiURL, c.zoneID, ref),
		nil, nil)
	if err != nil && fault.Is(err, fault.NotFound) {
		return nil
	}
	return err
}

//
// plumbing
//

func (c *Cloudflare) listByHostname(ctx context.Context, name string) ([]customHostname, error) {
	const op = "dns.list_records"

	var out listResponse
	err := c.do(ctx, op, http.MethodGet,
		fmt.Sprintf("%s/zones/%s/custom_hostnames?hostname=%s", c.apiURL, c.zoneID, name),
		nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Cloudflare) do(ctx context.Context, op, method, url string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return fault.ProviderErr(op, err, false)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fault.ProviderErr(op, err, true)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fault.New(fault.NotFound, op, "record not found")
	case resp.StatusCode >= 500:
		return fault.ProviderErr(op, fmt.Errorf("provider status %d", resp.StatusCode), true)
	case resp.StatusCode >= 400:
		return fault.ProviderErr(op, fmt.Errorf("provider status %d", resp.StatusCode), false)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.ProviderErr(op, err, true)
	}
	return nil
}

func apiErrorsOf(errs []apiError) error {
	if len(errs) == 0 {
		return fmt.Errorf("provider reported failure")
	}
	return fmt.Errorf("provider error %d: %s", errs[0].Code, errs[0].Message)
}
