// Package social talks to the social network REST API that users and
// statuses are collected from.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/birdwatcher/internal/httpclient"
)

// ErrUserNotFound is returned when the API has no such account.
var ErrUserNotFound = errors.New("social: user not found")

// ErrNoToken is returned when no bearer token is configured.
var ErrNoToken = errors.New("social: bearer token is not configured")

// User is an account profile as reported by the API.
type User struct {
	ID            string
	ScreenName    string
	Name          string
	Location      string
	Description   string
	URL           string
	Followers     int64
	Friends       int64
	StatusesCount int64
	Verified      bool
	CreatedAt     time.Time
}

// Status is a post from a user timeline.
type Status struct {
	ID        string
	Text      string
	CreatedAt time.Time
	URLs      []string
}

// Client is the subset of the social API the console uses.
type Client interface {
	User(ctx context.Context, screenName string) (*User, error)
	Timeline(ctx context.Context, userID string, limit int) ([]Status, error)
}

// APIError is a non-success response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("social: api returned status %d", e.Status)
	}
	return fmt.Sprintf("social: api returned status %d: %s", e.Status, e.Message)
}

// HTTPClient implements Client over the v2 REST API.
type HTTPClient struct {
	baseURL string
	token   string
	http    *httpclient.Client
}

// NewHTTPClient returns a client for baseURL authenticated with token.
func NewHTTPClient(baseURL, token string, hc *httpclient.Client) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		http:    hc,
	}
}

const userFields = "created_at,description,location,public_metrics,url,verified"

type apiUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	Location      string `json:"location"`
	Description   string `json:"description"`
	URL           string `json:"url"`
	Verified      bool   `json:"verified"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		Followers int64 `json:"followers_count"`
		Following int64 `json:"following_count"`
		Tweets    int64 `json:"tweet_count"`
	} `json:"public_metrics"`
}

type apiStatus struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	Entities  struct {
		URLs []struct {
			URL         string `json:"url"`
			ExpandedURL string `json:"expanded_url"`
		} `json:"urls"`
	} `json:"entities"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// User fetches a profile by screen name.
func (c *HTTPClient) User(ctx context.Context, screenName string) (*User, error) {
	screenName = strings.TrimPrefix(strings.TrimSpace(screenName), "@")
	if screenName == "" {
		return nil, fmt.Errorf("social: screen name is required")
	}
	var payload struct {
		Data   *apiUser   `json:"data"`
		Errors []apiError `json:"errors"`
	}
	endpoint := "/2/users/by/username/" + url.PathEscape(screenName)
	if err := c.get(ctx, endpoint, url.Values{"user.fields": {userFields}}, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, fmt.Errorf("%s: %w", screenName, ErrUserNotFound)
	}
	u := payload.Data
	return &User{
		ID:            u.ID,
		ScreenName:    u.Username,
		Name:          u.Name,
		Location:      u.Location,
		Description:   u.Description,
		URL:           u.URL,
		Followers:     u.PublicMetrics.Followers,
		Friends:       u.PublicMetrics.Following,
		StatusesCount: u.PublicMetrics.Tweets,
		Verified:      u.Verified,
		CreatedAt:     parseTime(u.CreatedAt),
	}, nil
}

// Timeline fetches up to limit of a user's most recent statuses.
func (c *HTTPClient) Timeline(ctx context.Context, userID string, limit int) ([]Status, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("social: user id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if limit < 5 {
		limit = 5
	}
	var payload struct {
		Data   []apiStatus `json:"data"`
		Errors []apiError  `json:"errors"`
	}
	params := url.Values{
		"max_results":  {strconv.Itoa(limit)},
		"tweet.fields": {"created_at,entities"},
	}
	if err := c.get(ctx, "/2/users/"+url.PathEscape(userID)+"/tweets", params, &payload); err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(payload.Data))
	for _, s := range payload.Data {
		st := Status{ID: s.ID, Text: s.Text, CreatedAt: parseTime(s.CreatedAt)}
		for _, u := range s.Entities.URLs {
			link := u.ExpandedURL
			if link == "" {
				link = u.URL
			}
			if link != "" {
				st.URLs = append(st.URLs, link)
			}
		}
		out = append(out, st)
	}
	return out, nil
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, params url.Values, into any) error {
	if c.token == "" {
		return ErrNoToken
	}
	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	header.Set("Accept", "application/json")
	resp, err := c.http.Get(ctx, target, header)
	if err != nil {
		return fmt.Errorf("social: %w", err)
	}
	if resp.Status == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.Status < 200 || resp.Status > 299 {
		return &APIError{Status: resp.Status, Message: errorMessage(resp.Body)}
	}
	if err := json.Unmarshal(resp.Body, into); err != nil {
		return fmt.Errorf("social: decode %s: %w", endpoint, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Title  string     `json:"title"`
		Detail string     `json:"detail"`
		Errors []apiError `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	if len(payload.Errors) > 0 {
		return payload.Errors[0].Detail
	}
	return payload.Title
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
