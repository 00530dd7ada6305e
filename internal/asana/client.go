package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/jpillora/backoff"
)

// ErrUnavailable wraps every failure talking to Asana.
var ErrUnavailable = errors.New("asana: unavailable")

const (
	maxBodyBytes  = 2 * 1024 * 1024
	pageLimit     = 100
	maxParentHops = 20
	taskFields    = "name,due_on,projects,projects.name,notes,assignee_section.name,permalink_url"
	parentFields  = "projects,projects.name,parent,parent.name"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("asana: status %d from %s: %s", e.Code, e.URL, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client is a minimal Asana REST client. Each call carries the caller's bearer token.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	retries    int
	minWait    time.Duration
	maxWait    time.Duration
	log        log15.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithRetries sets how many times an idempotent GET is retried on transient failure.
func WithRetries(n int) Option { return func(c *Client) { c.retries = n } }

func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) { c.minWait, c.maxWait = min, max }
}

func WithLogger(l log15.Logger) Option { return func(c *Client) { c.log = l } }

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Asana base URL: %w", err)
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retries:    2,
		minWait:    200 * time.Millisecond,
		maxWait:    3 * time.Second,
		log:        log15.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CurrentUser fetches the owner of token.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	var env envelope[User]
	err := c.get(ctx, token, "users/me", url.Values{"opt_fields": {"name"}}, &env)
	if err != nil {
		return User{}, err
	}
	if env.Data.Name == "" {
		return User{}, fmt.Errorf("%w: users/me returned no name", ErrUnavailable)
	}
	return env.Data, nil
}

// UserTaskList returns the gid of the "My tasks" list of userGID in workspace.
func (c *Client) UserTaskList(ctx context.Context, token, userGID, workspace string) (string, error) {
	var env envelope[Ref]
	endpoint := "users/" + userGID + "/user_task_list"
	if err := c.get(ctx, token, endpoint, url.Values{"workspace": {workspace}}, &env); err != nil {
		return "", err
	}
	if env.Data.GID == "" {
		return "", fmt.Errorf("%w: no task list for user %s", ErrUnavailable, userGID)
	}
	return env.Data.GID, nil
}

// Tasks returns every incomplete task in the list, following pagination to the end.
func (c *Client) Tasks(ctx context.Context, token, listGID string) ([]Task, error) {
	endpoint := "user_task_lists/" + listGID + "/tasks"
	query := url.Values{
		"completed_since": {"now"},
		"limit":           {strconv.Itoa(pageLimit)},
		"opt_fields":      {taskFields},
	}

	var tasks []Task
	for {
		var env envelope[[]Task]
		if err := c.get(ctx, token, endpoint, query, &env); err != nil {
			return nil, err
		}
		tasks = append(tasks, env.Data...)
		if env.NextPage == nil || env.NextPage.Offset == "" {
			return tasks, nil
		}
		query.Set("offset", env.NextPage.Offset)
	}
}

// ProjectNames returns the projects of the task, or of its nearest ancestor that has any.
// A chain that never reaches a project yields no names and no error.
func (c *Client) ProjectNames(ctx context.Context, token, taskGID string) ([]string, error) {
	gid := taskGID
	for hop := 0; hop < maxParentHops; hop++ {
		var env envelope[Task]
		if err := c.get(ctx, token, "tasks/"+gid, url.Values{"opt_fields": {parentFields}}, &env); err != nil {
			return nil, err
		}
		if names := env.Data.ProjectNames(); len(names) > 0 {
			return names, nil
		}
		if env.Data.Parent == nil || env.Data.Parent.GID == "" {
			return nil, nil
		}
		gid = env.Data.Parent.GID
	}
	c.log.Warn("parent chain too deep, giving up", "task", taskGID, "hops", maxParentHops)
	return nil, nil
}

// TeamUsers lists the members of a team.
func (c *Client) TeamUsers(ctx context.Context, token, teamGID string) ([]User, error) {
	endpoint := "teams/" + teamGID + "/users"
	query := url.Values{"opt_fields": {"name"}, "limit": {strconv.Itoa(pageLimit)}}

	var users []User
	for {
		var env envelope[[]User]
		if err := c.get(ctx, token, endpoint, query, &env); err != nil {
			return nil, err
		}
		users = append(users, env.Data...)
		if env.NextPage == nil || env.NextPage.Offset == "" {
			return users, nil
		}
		query.Set("offset", env.NextPage.Offset)
	}
}

// get performs an idempotent GET, retrying transient failures with backoff.
func (c *Client) get(ctx context.Context, token, path string, query url.Values, out any) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	endpoint.RawQuery = query.Encode()

	b := &backoff.Backoff{Min: c.minWait, Max: c.maxWait, Factor: 2, Jitter: true}
	for attempt := 0; ; attempt++ {
		retry, err := c.do(ctx, http.MethodGet, endpoint.String(), token, out)
		if err == nil {
			return nil
		}
		if !retry || attempt >= c.retries {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		wait := b.Duration()
		c.log.Debug("retrying asana request", "path", path, "attempt", attempt+1, "wait", wait, "err", err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
}

// do sends one request. retry reports whether the failure is worth another attempt.
func (c *Client) do(ctx context.Context, method, endpoint, token string, out any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("request %s failed: %w", redact(endpoint), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("failed to read response from %s: %w", redact(endpoint), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Code: resp.StatusCode, URL: redact(endpoint), Body: truncateForLog(string(body), 1024)}
		return se.retryable(), se
	}

	if out == nil {
		return false, nil
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "json") {
		return false, fmt.Errorf("non-JSON content-type %q from %s: %s", ct, redact(endpoint), truncateForLog(string(body), 1024))
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response from %s: %w", redact(endpoint), err)
	}
	return false, nil
}

// redact drops the query string.
func redact(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

func truncateForLog(body string, max int) string {
	body = strings.TrimSpace(body)
	if max <= 0 {
		return ""
	}
	if len(body) <= max {
		return body
	}
	return body[:max] + "..."
}
