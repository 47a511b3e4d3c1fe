package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPGateway implements Mailer against a transactional mail provider's
// JSON API
type HTTPGateway struct {
	apiURL    string
	apiKey    string
	fromName  string
	fromEmail string
	client    *http.Client
}

// HTTPGatewayConfig holds configuration for the HTTP mail gateway
type HTTPGatewayConfig struct {
	APIURL    string
	APIKey    string
	FromName  string
	FromEmail string
}

// NewHTTPGateway creates a new HTTP mail gateway client
func NewHTTPGateway(config HTTPGatewayConfig) *HTTPGateway {
	return &HTTPGateway{
		apiURL:    config.APIURL,
		apiKey:    config.APIKey,
		fromName:  config.FromName,
		fromEmail: config.FromEmail,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendRequest is the provider's send payload
type sendRequest struct {
	TemplateID string                 `json:"template_id"`
	To         string                 `json:"to"`
	FromName   string                 `json:"from_name"`
	FromEmail  string                 `json:"from_email"`
	Variables  map[string]interface{} `json:"variables"`
}

// sendResponse is the provider's send result
type sendResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	ErrCode   string `json:"err_code"`
	Comment   string `json:"comment"`
}

// Send posts the template and variables to the provider
func (g *HTTPGateway) Send(templateID string, data map[string]interface{}, to string) (bool, error) {
	payload := sendRequest{
		TemplateID: templateID,
		To:         to,
		FromName:   g.fromName,
		FromEmail:  g.fromEmail,
		Variables:  data,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, g.apiURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("mail provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read mail provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("mail provider returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result sendResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return false, fmt.Errorf("failed to parse mail provider response: %w", err)
	}

	if result.Status != "success" {
		return false, fmt.Errorf("mail provider rejected message: %s (%s)", result.Comment, result.ErrCode)
	}

	return true, nil
}

// GetName returns the gateway name
func (g *HTTPGateway) GetName() string {
	return "http-mail-gateway"
}
