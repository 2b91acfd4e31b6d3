// Command netslicectl is a thin HTTP client for operating a running
// netslice controller: activate/deactivate a slice by name, or fetch the
// current status snapshot. Grounded on the request/response shape of the
// teacher's SDN announce client, simplified to one-shot request/response
// since there is no heartbeat loop to run here.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// requestIDHeader carries a per-call correlation id so operator CLI
// output can be matched against the controller's own logs for the same
// call (see internal/api, which logs this header's value against the
// matching handler call when present).
const requestIDHeader = "X-Request-Id"

// Client is a minimal HTTP client for the Control API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client targeting the controller at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

type actionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type sliceStatusDoc struct {
	Name       string  `json:"name"`
	Paths      [][]int `json:"paths"`
	ReservedBW int     `json:"reserved_bw_pct"`
	Priority   int     `json:"priority"`
}

type linkStatusDoc struct {
	From     int `json:"from"`
	To       int `json:"to"`
	UsedBW   int `json:"used_bw_pct"`
	Capacity int `json:"capacity_pct"`
}

type statusResponse struct {
	Slices []sliceStatusDoc `json:"slices"`
	Links  []linkStatusDoc  `json:"links"`
}

// Activate calls POST /slice/{name}/activate.
func (c *Client) Activate(name string) (actionResponse, error) {
	return c.postAction(fmt.Sprintf("%s/slice/%s/activate", c.baseURL, name))
}

// Deactivate calls POST /slice/{name}/deactivate.
func (c *Client) Deactivate(name string) (actionResponse, error) {
	return c.postAction(fmt.Sprintf("%s/slice/%s/deactivate", c.baseURL, name))
}

func (c *Client) postAction(url string) (actionResponse, error) {
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return actionResponse{}, fmt.Errorf("netslicectl: build request: %w", err)
	}
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return actionResponse{}, fmt.Errorf("netslicectl: request failed: %w", err)
	}
	defer resp.Body.Close()

	var body actionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return actionResponse{}, fmt.Errorf("netslicectl: decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return body, fmt.Errorf("netslicectl: %s returned %d: %s", url, resp.StatusCode, body.Message)
	}
	return body, nil
}

// Status calls GET /slices/status.
func (c *Client) Status() (statusResponse, error) {
	url := fmt.Sprintf("%s/slices/status", c.baseURL)
	resp, err := c.http.Get(url)
	if err != nil {
		return statusResponse{}, fmt.Errorf("netslicectl: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusResponse{}, fmt.Errorf("netslicectl: %s returned %d", url, resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return statusResponse{}, fmt.Errorf("netslicectl: decode response: %w", err)
	}
	return body, nil
}
