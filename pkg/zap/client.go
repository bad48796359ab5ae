// Package zap is the stateless adapter for a separately running OWASP ZAP
// scanning engine. It translates tool calls into ZAP API requests and
// normalizes responses. When no API URL is configured it serves
// deterministic placeholder data, tagged so callers can always tell it
// apart from real scanner output.
package zap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// AdapterError carries the upstream status and message when the scanner is
// unreachable or returns an error. The core never retries these.
type AdapterError struct {
	StatusCode int
	Message    string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("scanner adapter failure (status %d): %s", e.StatusCode, e.Message)
}

// ScanHandle identifies a started scan.
type ScanHandle struct {
	ScanID string `json:"scanId"`
	Mock   bool   `json:"mock,omitempty"`
}

// ScanStatus is a normalized progress report. Progress runs 0-100.
type ScanStatus struct {
	Progress int    `json:"status"`
	State    string `json:"state"`
	Mock     bool   `json:"mock,omitempty"`
}

// Alert is a normalized scanner finding.
type Alert struct {
	Risk        string `json:"risk"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Confidence  string `json:"confidence"`
	URL         string `json:"url"`
	Mock        bool   `json:"mock,omitempty"`
}

// Report is the normalized report summary.
type Report struct {
	Summary string `json:"summary"`
	Mock    bool   `json:"mock,omitempty"`
}

// Client talks to the ZAP API. Safe for concurrent use; Configure may be
// called at runtime.
type Client struct {
	logger     zerolog.Logger
	httpClient *http.Client

	mu     sync.RWMutex
	apiURL string
	apiKey string

	mockMu    sync.Mutex
	mockSeq   int
	mockScans map[string]int
}

// New creates a Client. An empty apiURL leaves the client unconfigured and
// every operation returns tagged mock data until Configure is called.
func New(logger zerolog.Logger, apiURL, apiKey string) *Client {
	return &Client{
		logger:     logger.With().Str("component", "zap").Logger(),
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		mockScans:  make(map[string]int),
	}
}

// Configure points the client at a ZAP instance.
func (c *Client) Configure(apiURL, apiKey string) {
	c.mu.Lock()
	c.apiURL = strings.TrimRight(apiURL, "/")
	c.apiKey = apiKey
	c.mu.Unlock()
	c.logger.Info().Str("api_url", apiURL).Msg("scanner adapter configured")
}

// Configured reports whether a real ZAP endpoint is set.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiURL != ""
}

// StartActiveScan starts an active scan against targetURL.
func (c *Client) StartActiveScan(ctx context.Context, targetURL, policy, contextID string) (ScanHandle, error) {
	if !c.Configured() {
		return ScanHandle{ScanID: c.newMockScan(), Mock: true}, nil
	}
	q := url.Values{"url": {targetURL}, "recurse": {"true"}}
	if policy != "" {
		q.Set("scanPolicyName", policy)
	}
	if contextID != "" {
		q.Set("contextId", contextID)
	}
	var out struct {
		Scan string `json:"scan"`
	}
	if err := c.get(ctx, "/JSON/ascan/action/scan/", q, &out); err != nil {
		return ScanHandle{}, err
	}
	return ScanHandle{ScanID: out.Scan}, nil
}

// GetScanStatus reports active scan progress.
func (c *Client) GetScanStatus(ctx context.Context, scanID string) (ScanStatus, error) {
	if !c.Configured() {
		return c.mockStatus(scanID), nil
	}
	return c.status(ctx, "/JSON/ascan/view/status/", scanID)
}

// SpiderURL starts a spider crawl of targetURL.
func (c *Client) SpiderURL(ctx context.Context, targetURL string, maxChildren int, recurse bool) (ScanHandle, error) {
	if !c.Configured() {
		return ScanHandle{ScanID: c.newMockScan(), Mock: true}, nil
	}
	q := url.Values{"url": {targetURL}, "recurse": {strconv.FormatBool(recurse)}}
	if maxChildren > 0 {
		q.Set("maxChildren", strconv.Itoa(maxChildren))
	}
	var out struct {
		Scan string `json:"scan"`
	}
	if err := c.get(ctx, "/JSON/spider/action/scan/", q, &out); err != nil {
		return ScanHandle{}, err
	}
	return ScanHandle{ScanID: out.Scan}, nil
}

// GetSpiderStatus reports spider progress.
func (c *Client) GetSpiderStatus(ctx context.Context, scanID string) (ScanStatus, error) {
	if !c.Configured() {
		return c.mockStatus(scanID), nil
	}
	return c.status(ctx, "/JSON/spider/view/status/", scanID)
}

// GetAlerts returns findings for targetURL, optionally filtered by risk
// level (High, Medium, Low, Informational).
func (c *Client) GetAlerts(ctx context.Context, targetURL, riskLevel string) ([]Alert, error) {
	if !c.Configured() {
		return mockAlerts(targetURL, riskLevel), nil
	}
	q := url.Values{"baseurl": {targetURL}}
	var out struct {
		Alerts []struct {
			Risk        string `json:"risk"`
			Alert       string `json:"alert"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Confidence  string `json:"confidence"`
			URL         string `json:"url"`
		} `json:"alerts"`
	}
	if err := c.get(ctx, "/JSON/core/view/alerts/", q, &out); err != nil {
		return nil, err
	}
	alerts := make([]Alert, 0, len(out.Alerts))
	for _, a := range out.Alerts {
		name := a.Name
		if name == "" {
			name = a.Alert
		}
		if riskLevel != "" && !strings.EqualFold(a.Risk, riskLevel) {
			continue
		}
		alerts = append(alerts, Alert{
			Risk:        a.Risk,
			Name:        name,
			Description: a.Description,
			Confidence:  a.Confidence,
			URL:         a.URL,
		})
	}
	return alerts, nil
}

// GenerateReport builds a summary of current findings for targetURL.
func (c *Client) GenerateReport(ctx context.Context, targetURL, format string) (Report, error) {
	alerts, err := c.GetAlerts(ctx, targetURL, "")
	if err != nil {
		return Report{}, err
	}
	mock := !c.Configured()

	counts := map[string]int{}
	for _, a := range alerts {
		counts[a.Risk]++
	}

	var b strings.Builder
	switch format {
	case "json":
		data, _ := json.MarshalIndent(map[string]any{
			"target": targetURL,
			"total":  len(alerts),
			"byRisk": counts,
			"mock":   mock,
		}, "", "  ")
		b.Write(data)
	case "markdown":
		fmt.Fprintf(&b, "# Security report for %s\n\n", targetURL)
		fmt.Fprintf(&b, "Total alerts: %d\n\n", len(alerts))
		for _, risk := range []string{"High", "Medium", "Low", "Informational"} {
			if counts[risk] > 0 {
				fmt.Fprintf(&b, "- **%s**: %d\n", risk, counts[risk])
			}
		}
	default:
		fmt.Fprintf(&b, "Security report for %s\n", targetURL)
		fmt.Fprintf(&b, "Total alerts: %d\n", len(alerts))
		for _, risk := range []string{"High", "Medium", "Low", "Informational"} {
			if counts[risk] > 0 {
				fmt.Fprintf(&b, "  %-13s %d\n", risk+":", counts[risk])
			}
		}
	}
	return Report{Summary: b.String(), Mock: mock}, nil
}

func (c *Client) status(ctx context.Context, path, scanID string) (ScanStatus, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, path, url.Values{"scanId": {scanID}}, &out); err != nil {
		return ScanStatus{}, err
	}
	progress, err := strconv.Atoi(out.Status)
	if err != nil {
		return ScanStatus{}, &AdapterError{StatusCode: http.StatusBadGateway, Message: fmt.Sprintf("unparsable scan status %q", out.Status)}
	}
	state := "running"
	if progress >= 100 {
		state = "completed"
	}
	return ScanStatus{Progress: progress, State: state}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	c.mu.RLock()
	base, key := c.apiURL, c.apiKey
	c.mu.RUnlock()

	if key != "" {
		q.Set("apikey", key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+q.Encode(), nil)
	if err != nil {
		return &AdapterError{StatusCode: 0, Message: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AdapterError{StatusCode: 0, Message: fmt.Sprintf("scanner unreachable: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return &AdapterError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return &AdapterError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &AdapterError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("invalid scanner response: %v", err)}
	}
	return nil
}

// newMockScan allocates a deterministic placeholder scan that advances by
// 50% on every status poll.
func (c *Client) newMockScan() string {
	c.mockMu.Lock()
	defer c.mockMu.Unlock()
	c.mockSeq++
	id := fmt.Sprintf("mock-%d", c.mockSeq)
	c.mockScans[id] = 0
	return id
}

func (c *Client) mockStatus(scanID string) ScanStatus {
	c.mockMu.Lock()
	defer c.mockMu.Unlock()
	progress, ok := c.mockScans[scanID]
	if ok {
		progress += 50
		if progress > 100 {
			progress = 100
		}
		c.mockScans[scanID] = progress
	} else {
		progress = 100
	}
	state := "running"
	if progress >= 100 {
		state = "completed"
	}
	return ScanStatus{Progress: progress, State: state, Mock: true}
}

func mockAlerts(targetURL, riskLevel string) []Alert {
	all := []Alert{
		{
			Risk:        "Medium",
			Name:        "X-Frame-Options Header Not Set",
			Description: "X-Frame-Options header is not included in the HTTP response to protect against clickjacking attacks.",
			Confidence:  "Medium",
			URL:         targetURL,
			Mock:        true,
		},
		{
			Risk:        "Low",
			Name:        "Cookie Without Secure Flag",
			Description: "A cookie has been set without the secure flag.",
			Confidence:  "High",
			URL:         targetURL,
			Mock:        true,
		},
	}
	if riskLevel == "" {
		return all
	}
	var filtered []Alert
	for _, a := range all {
		if strings.EqualFold(a.Risk, riskLevel) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}
