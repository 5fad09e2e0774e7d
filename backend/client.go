package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cyverse-de/notification-gateway/logging"
	"github.com/cyverse-de/notification-gateway/model"
	"github.com/pkg/errors"
)

var log = logging.Log.WithField("package", "backend")

// TokenSource provides the bearer token used to authenticate requests to the backend.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StatusError is returned when the backend responds with a status code outside of the 2xx range.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error returns the error message for a StatusError.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}

// Pagination describes the page of notifications returned by the backend.
type Pagination struct {
	Page       int  `json:"page,omitempty"`
	Limit      int  `json:"limit,omitempty"`
	Total      int  `json:"total,omitempty"`
	TotalPages int  `json:"totalPages,omitempty"`
	HasMore    bool `json:"hasMore,omitempty"`
}

// NotificationList is the response body of the notification listing endpoint.
type NotificationList struct {
	Notifications []model.Notification `json:"notifications"`
	Pagination    *Pagination          `json:"pagination,omitempty"`
}

type unreadCount struct {
	UnreadCount int `json:"unreadCount"`
}

type pushTokenRequest struct {
	FCMToken string `json:"fcmToken"`
}

// Client is a thin HTTP client for the notification endpoints of the backend API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a new backend client. The baseURL is the root of the backend API, for example
// https://api.example.com/api.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListNotifications obtains the most recent notifications in the order the backend returns them.
func (c *Client) ListNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))

	var result NotificationList
	if err := c.do(ctx, http.MethodGet, "/notifications?"+query.Encode(), nil, &result); err != nil {
		return nil, errors.Wrap(err, "unable to list notifications")
	}
	if result.Notifications == nil {
		result.Notifications = []model.Notification{}
	}

	return result.Notifications, nil
}

// UnreadCount obtains the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var result unreadCount
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, &result); err != nil {
		return 0, errors.Wrap(err, "unable to get the unread notification count")
	}
	return result.UnreadCount, nil
}

// MarkRead marks a single notification as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	path := fmt.Sprintf("/notifications/%s/read", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, path, nil, nil)
	return errors.Wrapf(err, "unable to mark notification %s as read", id)
}

// MarkAllRead marks every notification as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/notifications/mark-all-read", nil, nil)
	return errors.Wrap(err, "unable to mark all notifications as read")
}

// ClearAll removes every notification.
func (c *Client) ClearAll(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, "/notifications/clear-all", nil, nil)
	return errors.Wrap(err, "unable to clear notifications")
}

// RegisterPushToken registers the device push token with the backend.
func (c *Client) RegisterPushToken(ctx context.Context, token string) error {
	err := c.do(ctx, http.MethodPost, "/notifications/fcm-token", &pushTokenRequest{FCMToken: token}, nil)
	return errors.Wrap(err, "unable to register the push token")
}

// do builds and sends an authenticated request, decoding the JSON response into result if result isn't nil.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "unable to marshal the request body")
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return errors.Wrap(err, "unable to create the request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debugf("%s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "unable to execute %s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "unable to read the response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	// No content to parse.
	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return errors.Wrapf(err, "unable to parse the response from %s %s", method, path)
	}

	return nil
}
