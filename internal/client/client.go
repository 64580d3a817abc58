// Package client talks to the relaypace REST API. It implements the
// draftsync Gateway so editing sessions can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"relaypace/internal/estimate"
	"relaypace/internal/models"
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrRejected is returned for 400 responses.
	ErrRejected = errors.New("rejected by server")
)

// StatusError carries an unexpected response status and body.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status code: %d, response: %s", e.Code, e.Body)
}

// Unwrap maps well known statuses onto sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrRejected
	}
	return nil
}

// Client is an HTTP client for one relaypace server.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// New returns a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		headers: make(map[string]string),
	}
}

// SetHeader adds a header to every request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

func teamPath(name string) string {
	return "/api/team/" + url.PathEscape(name)
}

// CreateTeam creates the named team if it does not exist yet. It reports
// whether the team was created.
func (c *Client) CreateTeam(ctx context.Context, name string) (bool, error) {
	body, err := c.do(ctx, http.MethodPatch, "/api/team", map[string]string{"name": name})
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(body)) == "created new team", nil
}

// ListTeams returns every team.
func (c *Client) ListTeams(ctx context.Context) ([]models.TeamSummary, error) {
	var teams []models.TeamSummary
	return teams, c.getJSON(ctx, "/api/teams", &teams)
}

// GetTeam loads a team with its runners and loops.
func (c *Client) GetTeam(ctx context.Context, name string) (models.Team, error) {
	var team models.Team
	return team, c.getJSON(ctx, teamPath(name), &team)
}

// SaveTeam overwrites the team's editable fields.
func (c *Client) SaveTeam(ctx context.Context, team models.Team) error {
	_, err := c.do(ctx, http.MethodPost, teamPath(team.Name), team)
	return err
}

// GetFinishTimes loads the team's recorded finish times.
func (c *Client) GetFinishTimes(ctx context.Context, name string) ([]models.ActualFinishTime, error) {
	var times []models.ActualFinishTime
	return times, c.getJSON(ctx, teamPath(name)+"/finish-times", &times)
}

// ReplaceFinishTimes replaces the team's finish times with times.
func (c *Client) ReplaceFinishTimes(ctx context.Context, name string, times []models.ActualFinishTime) error {
	if times == nil {
		times = []models.ActualFinishTime{}
	}
	_, err := c.do(ctx, http.MethodPost, teamPath(name)+"/finish-times", times)
	return err
}

// Estimates fetches the server computed leg table and trail paces.
func (c *Client) Estimates(ctx context.Context, name string) (estimate.Table, error) {
	var table estimate.Table
	return table, c.getJSON(ctx, teamPath(name)+"/estimates", &table)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(responseBody))}
	}
	return responseBody, nil
}
