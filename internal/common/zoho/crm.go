// Package zoho keeps the CRM contact list in step with account sign-ups and plan changes.
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.zohoapis.com/crm/v3"

type CRMClient struct {
	apiKey     string
	oauthToken string
	baseURL    string
	httpClient *http.Client
}

// Contact is a CRM contact. Plan and Role are custom fields on the Contacts module.
type Contact struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"Email"`
	FirstName string `json:"First_Name,omitempty"`
	LastName  string `json:"Last_Name"`
	Source    string `json:"Lead_Source,omitempty"`
	Plan      string `json:"Subscription_Plan,omitempty"`
	Role      string `json:"Target_Role,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Action  string `json:"action"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(apiKey, oauthToken, baseURL string) *CRMClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CRMClient{
		apiKey:     apiKey,
		oauthToken: oauthToken,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// UpsertContact creates or updates the contact matched by email and returns its id.
func (c *CRMClient) UpsertContact(ctx context.Context, contact *Contact) (string, error) {
	if contact.LastName == "" {
		// Last_Name is mandatory on Contacts
		contact.LastName = contact.Email
	}

	payload := map[string]interface{}{
		"data":                   []Contact{*contact},
		"duplicate_check_fields": []string{"Email"},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Contacts/upsert", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to upsert contact (status %d): %s", resp.StatusCode, string(body))
	}

	var result upsertResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if result.Data[0].Status != "success" {
		return "", fmt.Errorf("contact upsert failed: %s", result.Data[0].Message)
	}

	return result.Data[0].Details.ID, nil
}
