package session

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"herald/internal/domain/credential"
	"herald/internal/domain/entity"
	"herald/internal/errors"

	"github.com/goccy/go-json"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Reason     string
	Message    string
	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := http.StatusText(e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	return msg
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeEnvelope reads a response envelope into out, or returns an *APIError.
func decodeEnvelope(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return errors.Wrap(err, "decode response")
		}
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Reason = env.Error.Reason
			apiErr.Message = env.Error.Message
		}

		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}

	return errors.Wrap(json.Unmarshal(env.Data, out), "decode response data")
}

// parseRetryAfter reads either form of Retry-After: delay seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}

		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}

	return 0
}

func encodeJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	return raw, nil
}

type authOutput struct {
	Account *entity.Identity `json:"account"`
	Tokens  *Tokens          `json:"tokens"`
}

// Login starts a fresh session, leaving FAILED if that was the state.
func (c *Coordinator) Login(ctx context.Context, email, password string) (*entity.Identity, error) {
	body, err := encodeJSON(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "login request")
	}
	defer resp.Body.Close()

	var out authOutput
	if err := decodeEnvelope(resp, &out); err != nil {
		return nil, err
	}
	if out.Tokens == nil {
		return nil, errors.New("login response carries no tokens")
	}

	c.install(out.Tokens)

	return out.Account, nil
}

// Logout revokes the refresh token server side and ends the session locally
// even when the server call fails.
func (c *Coordinator) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", http.NoBody)
	if err != nil {
		return errors.Wrap(err, "build logout request")
	}

	resp, callErr := c.Do(req)
	if callErr == nil {
		callErr = decodeEnvelope(resp, nil)
		resp.Body.Close()
	}

	c.fail(ended(credential.ReasonRotated, errors.New("logged out")))

	return callErr
}

// DoJSON sends a JSON request through Do and decodes the data field of the response into out.
func (c *Coordinator) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := encodeJSON(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp, out)
}
