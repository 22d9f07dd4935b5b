package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nocturne/pkg/errors"
)

// Client invokes callable Cloud Functions. Room creation runs server-side as
// an opaque remote procedure; this client speaks the callable protocol
// (POST {"data": ...} -> {"result": ...} | {"error": ...}).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type callableEnvelope struct {
	Data interface{} `json:"data"`
}

type callableResult struct {
	Result json.RawMessage `json:"result"`
	Error  *callableError  `json:"error"`
}

type callableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Call invokes the named function and decodes its result into out.
func (c *Client) Call(ctx context.Context, name string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(callableEnvelope{Data: payload})
	if err != nil {
		return errors.Internal("Failed to encode function payload", err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Internal("Failed to build function request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Internal(fmt.Sprintf("Failed to call function %s", name), err)
	}
	defer resp.Body.Close()

	var result callableResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.Internal(fmt.Sprintf("Failed to decode response from function %s", name), err)
	}
	if result.Error != nil {
		return errors.Internal(fmt.Sprintf("Function %s failed: %s", name, result.Error.Message), nil)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Internal(fmt.Sprintf("Function %s returned status %d", name, resp.StatusCode), nil)
	}

	if out != nil && len(result.Result) > 0 {
		if err := json.Unmarshal(result.Result, out); err != nil {
			return errors.Internal(fmt.Sprintf("Failed to parse result from function %s", name), err)
		}
	}
	return nil
}

type createChatRoomResult struct {
	ChatRoomID string `json:"chatRoomId"`
}

// CreateChatRoom asks the backend to create (or return) the one-to-one room
// between the two users.
func (c *Client) CreateChatRoom(ctx context.Context, currentUserID, otherUserID string) (string, error) {
	payload := map[string]string{
		"currentUserId": currentUserID,
		"otherUserId":   otherUserID,
	}

	var result createChatRoomResult
	if err := c.Call(ctx, "createChatRoom", payload, &result); err != nil {
		return "", err
	}
	if result.ChatRoomID == "" {
		return "", errors.Internal("createChatRoom returned no room ID", nil)
	}
	return result.ChatRoomID, nil
}
