package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/c360studio/swagger2dcat/catalog"
)

// SubmissionError is a failed DataServiceInput submission. Message is
// suitable for display.
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("submit record: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return "submit record: " + e.Message
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsSubmissionError reports whether err is a *SubmissionError.
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}

// SubmitResult is a successful submission.
type SubmitResult struct {
	// DatasetID is the id assigned by the catalog.
	DatasetID string          `json:"dataset_id"`
	Response  json.RawMessage `json:"response,omitempty"`
}

// ValidToken reports whether token has the "Bearer " prefix.
func ValidToken(token string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(token)), "bearer ")
}

// Submit posts rec to {base}/DataServiceInput with token as the
// Authorization header. Submissions are never retried.
func (c *Client) Submit(ctx context.Context, token string, rec *catalog.Record) (*SubmitResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &SubmissionError{Message: "No access token provided."}
	}
	if !ValidToken(token) {
		return nil, &SubmissionError{Message: `Invalid token format. Token must start with "Bearer ".`}
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, &SubmissionError{Message: "Could not encode the record.", Err: err}
	}

	endpoint := c.baseURL + "/DataServiceInput"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &SubmissionError{Message: "Could not create the request.", Err: err}
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, body, err := c.do(req)
	if err != nil {
		return nil, transportError(err)
	}

	c.logger.Info("Submitted record", "endpoint", endpoint, "status", resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return successResult(body), nil
	case http.StatusUnauthorized:
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Message: "Authentication failed. Please check your access token."}
	case http.StatusForbidden:
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Message: "Access forbidden. You may not have permission to submit data."}
	case http.StatusBadRequest:
		return nil, apiError(resp.StatusCode, body, "API error: ", "Bad request")
	case http.StatusUnprocessableEntity:
		return nil, apiError(resp.StatusCode, body, "Data validation failed: ", "Validation failed")
	default:
		return nil, apiError(resp.StatusCode, body, "API error: ", fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
}

func successResult(body []byte) *SubmitResult {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return &SubmitResult{DatasetID: "Submitted successfully"}
	}

	res := &SubmitResult{DatasetID: "Generated", Response: json.RawMessage(body)}
	for _, key := range []string{"id", "datasetId"} {
		if v, ok := data[key]; ok && v != nil && fmt.Sprint(v) != "" {
			res.DatasetID = fmt.Sprint(v)
			break
		}
	}
	return res
}

// apiError builds the message from the JSON "message" or "error" field,
// falling back to fallback, or to the raw body when it is not JSON.
func apiError(status int, body []byte, prefix, fallback string) *SubmissionError {
	var data struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		text := strings.TrimSpace(string(body))
		if status == http.StatusUnprocessableEntity {
			return &SubmissionError{StatusCode: status, Message: fmt.Sprintf("Data validation failed (422): %s", text)}
		}
		return &SubmissionError{StatusCode: status, Message: fmt.Sprintf("API error (HTTP %d): %s", status, text)}
	}

	msg := data.Message
	if msg == "" {
		msg = data.Error
	}
	if msg == "" {
		msg = fallback
	}
	return &SubmissionError{StatusCode: status, Message: prefix + msg}
}

func transportError(err error) *SubmissionError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &SubmissionError{Message: "Request timed out. The I14Y API may be temporarily unavailable.", Err: err}
	case errors.Is(err, context.Canceled):
		return &SubmissionError{Message: "Submission cancelled.", Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &SubmissionError{Message: "Connection error. Please check your internet connection and try again.", Err: err}
	}
	return &SubmissionError{Message: fmt.Sprintf("Network error: %v", err), Err: err}
}
