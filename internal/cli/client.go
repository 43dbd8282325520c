package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hyperjump/doctext/internal/models"
)

// ConvertPath is the conversion endpoint relative to the server URL.
const ConvertPath = "/file-to-text"

// maxErrorBody bounds how much of a non-JSON error response is echoed back.
const maxErrorBody = 4096

// NewConvertRequest builds a contentBytes request body for content named name.
func NewConvertRequest(name string, content []byte) *models.ConvertRequest {
	return &models.ConvertRequest{
		ContentBytes: base64.StdEncoding.EncodeToString(content),
		Name:         name,
	}
}

// ServerError is a non-200 response from the conversion server.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// ConvertViaHTTP posts req to serverURL and decodes the FileText response.
// client may be nil to use http.DefaultClient.
func ConvertViaHTTP(ctx context.Context, client *http.Client, serverURL string, req *models.ConvertRequest) (*models.FileText, error) {
	if client == nil {
		client = http.DefaultClient
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(serverURL, "/")+ConvertPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var errResp models.ErrorResponse
		if json.Unmarshal(b, &errResp) == nil && errResp.Detail != "" {
			return nil, &ServerError{StatusCode: resp.StatusCode, Detail: errResp.Detail}
		}
		return nil, &ServerError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(b))}
	}
	var result models.FileText
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
