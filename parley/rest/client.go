package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Client provides REST API access to the chat workspace backend.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a new REST API client.
// baseURL should be the base URL of the API, e.g. "https://host/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the bearer token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token, if any.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authentication endpoints

// Login authenticates with credentials, stores the returned token on the
// client, and returns it.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/login", req, &resp, false); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// GuestLogin creates a temporary guest session and returns its token.
func (c *Client) GuestLogin(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/guest", nil, &resp, false); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Refresh exchanges the current token for a fresh one. Used as the Fetch
// hook of a parley.RefreshingProvider.
func (c *Client) Refresh(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/refresh", nil, &resp, true); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Conversation endpoints

// CreateConversation creates a new public or private conversation.
func (c *Client) CreateConversation(ctx context.Context, req CreateConversationRequest) (*ConversationInfo, error) {
	var resp ConversationInfo
	if err := c.post(ctx, "/conversations", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListConversations returns all accessible conversations for the
// authenticated user.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationInfo, error) {
	var resp []ConversationInfo
	if err := c.get(ctx, "/conversations", &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

// ArchiveConversation marks a conversation as archived. Archived
// conversations stop receiving messages but keep their history.
func (c *Client) ArchiveConversation(ctx context.Context, id string) error {
	path := fmt.Sprintf("/conversations/%s/archive", url.PathEscape(id))
	return c.post(ctx, path, nil, nil, true)
}

// Message history endpoints

// GetMessages retrieves message history for a conversation with
// cursor-based pagination.
// limit: maximum number of messages to return (default: 20, max: 100).
// before: if non-empty, returns messages before this message ID.
func (c *Client) GetMessages(ctx context.Context, conversationID string, limit int, before string) (*MessagesResponse, error) {
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	path := fmt.Sprintf("/conversations/%s/messages?limit=%d", url.PathEscape(conversationID), limit)
	if before != "" {
		path += "&before=" + url.QueryEscape(before)
	}

	var resp MessagesResponse
	if err := c.get(ctx, path, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any, requireAuth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req, requireAuth)

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any, requireAuth bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	c.authorize(req, requireAuth)

	return c.do(req, dest)
}

func (c *Client) authorize(req *http.Request, requireAuth bool) {
	if !requireAuth {
		return
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	// Unmarshal success response
	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
