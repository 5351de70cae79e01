package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// CodeSuccess is the envelope code for a successful call.
const CodeSuccess = 0

// ErrNoUserID is returned when a login succeeds without identifying the user.
var ErrNoUserID = errors.New("transport: login response carried no user id")

// Envelope is the service's response wrapper for request/response calls.
type Envelope struct {
	Code        int             `json:"code"`
	Message     string          `json:"message"`
	Data        json.RawMessage `json:"data,omitempty"`
	Description string          `json:"description,omitempty"`
}

// ServiceError is a well-formed response whose envelope reports a failure.
type ServiceError struct {
	Code        int
	Message     string
	Description string
}

func (e *ServiceError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("service error %d: %s (%s)", e.Code, e.Message, e.Description)
	}
	return fmt.Sprintf("service error %d: %s", e.Code, e.Message)
}

// Credentials is the login and register request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// User identifies an account on the service.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UnmarshalJSON accepts the id as either a JSON number or string.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       json.RawMessage `json:"id"`
		Username string          `json:"username"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	u.Username = raw.Username
	u.ID = ""

	if len(raw.ID) == 0 || string(raw.ID) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw.ID, &s); err == nil {
		u.ID = s
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(raw.ID, &n); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	u.ID = n.String()

	return nil
}

// Login authenticates username and returns the account. The password is
// sealed before it leaves the process.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	body, err := c.credentials(username, password)
	if err != nil {
		return nil, err
	}

	env, err := c.call(ctx, http.MethodPost, "/user/login", nil, body)
	if err != nil {
		return nil, err
	}

	// Some deployments answer with a bare message instead of the account.
	if len(env.Data) == 0 || env.Data[0] != '{' {
		return nil, ErrNoUserID
	}

	var user User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}

	if user.ID == "" {
		return nil, ErrNoUserID
	}
	if user.Username == "" {
		user.Username = username
	}

	c.logger.Debug("logged in", "user_id", user.ID)

	return &user, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body, err := c.credentials(username, password)
	if err != nil {
		return err
	}

	_, err = c.call(ctx, http.MethodPost, "/user/register", nil, body)
	return err
}

// ClearContext asks the service to forget the conversation it holds for
// userID.
func (c *Client) ClearContext(ctx context.Context, userID string) error {
	header := http.Header{}
	header.Set(UserIDHeader, userID)

	_, err := c.call(ctx, http.MethodGet, "/chat/clear", header, nil)
	return err
}

func (c *Client) credentials(username, password string) (any, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	sealed := password
	if c.sealer != nil {
		var err error
		sealed, err = c.sealer.Seal([]byte(password))
		if err != nil {
			return nil, fmt.Errorf("sealing password: %w", err)
		}
	}

	return Credentials{Username: username, Password: sealed}, nil
}

// call performs a request/response exchange and unwraps the envelope.
func (c *Client) call(ctx context.Context, method, target string, header http.Header, request any) (*Envelope, error) {
	u, err := c.resolve(target, nil)
	if err != nil {
		return nil, err
	}

	var body io.Reader = http.NoBody
	if request != nil {
		data, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req, ContentTypeJSON)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", target, err)
	}

	if env.Code != CodeSuccess {
		return nil, &ServiceError{
			Code:        env.Code,
			Message:     env.Message,
			Description: env.Description,
		}
	}

	return &env, nil
}

// FormatUserID renders a numeric account id the way the service expects it
// in the userId header.
func FormatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}
