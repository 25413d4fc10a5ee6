package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"phosphor/models"
	"phosphor/version"
	"strings"
	"time"
)

// Client is the HTTP client for talking to the Phosphor server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new HTTP client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// doRequest executes an HTTP request with a JSON body
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// doForm sends name, url and an optional icon file as multipart/form-data.
func (c *Client) doForm(method, path, name, url, iconPath string) (*http.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", name); err != nil {
		return nil, err
	}
	if err := mw.WriteField("url", url); err != nil {
		return nil, err
	}

	if iconPath != "" {
		data, err := os.ReadFile(iconPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read icon: %w", err)
		}
		filename := filepath.Base(iconPath)

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="icon"; filename=%q`, filename))
		// Without a known type the server falls back to the extension check.
		if contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// handleResponse decodes a 2xx body into result or turns the error body into an APIError
func (c *Client) handleResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(bodyBytes))
		if json.Unmarshal(bodyBytes, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Health is the /health payload.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Backend   string `json:"backend"`
}

// HealthCheck pings the health endpoint
func (c *Client) HealthCheck() (*Health, error) {
	resp, err := c.doRequest(http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var health Health
	if err := c.handleResponse(resp, &health); err != nil {
		return nil, fmt.Errorf("server unhealthy: %w", err)
	}
	return &health, nil
}

// Version fetches the server build info
func (c *Client) Version() (*version.Info, error) {
	resp, err := c.doRequest(http.MethodGet, "/api/version", nil)
	if err != nil {
		return nil, err
	}

	var info version.Info
	if err := c.handleResponse(resp, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Application API

// ListApplications lists all applications in display order
func (c *Client) ListApplications() ([]models.Application, error) {
	resp, err := c.doRequest(http.MethodGet, "/api/applications", nil)
	if err != nil {
		return nil, err
	}

	var apps []models.Application
	if err := c.handleResponse(resp, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// CreateApplication creates an application; iconPath may be empty
func (c *Client) CreateApplication(name, url, iconPath string) (*models.Application, error) {
	resp, err := c.doForm(http.MethodPost, "/api/applications", name, url, iconPath)
	if err != nil {
		return nil, err
	}

	var app models.Application
	if err := c.handleResponse(resp, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// UpdateApplication updates an application; iconPath may be empty to keep the icon
func (c *Client) UpdateApplication(id, name, url, iconPath string) (*models.Application, error) {
	resp, err := c.doForm(http.MethodPut, "/api/applications/"+id, name, url, iconPath)
	if err != nil {
		return nil, err
	}

	var app models.Application
	if err := c.handleResponse(resp, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// DeleteApplication deletes an application
func (c *Client) DeleteApplication(id string) error {
	resp, err := c.doRequest(http.MethodDelete, "/api/applications/"+id, nil)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}

// ReorderApplications submits the full display order
func (c *Client) ReorderApplications(ids []string) error {
	entries := make([]models.ReorderEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, models.ReorderEntry{ID: id})
	}

	resp, err := c.doRequest(http.MethodPut, "/api/applications/reorder", map[string]interface{}{"applications": entries})
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}

// Settings API

// GetSettings fetches the settings document
func (c *Client) GetSettings() (*models.Settings, error) {
	resp, err := c.doRequest(http.MethodGet, "/api/settings", nil)
	if err != nil {
		return nil, err
	}

	var settings models.Settings
	if err := c.handleResponse(resp, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings sends a partial settings update
func (c *Client) UpdateSettings(upd models.SettingsUpdate) (*models.Settings, error) {
	resp, err := c.doRequest(http.MethodPut, "/api/settings", upd)
	if err != nil {
		return nil, err
	}

	var settings models.Settings
	if err := c.handleResponse(resp, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
