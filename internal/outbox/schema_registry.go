package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const schemaRegistryContentType = "application/vnd.schemaregistry.v1+json"

// RegistryError is a non-success response from the schema registry.
type RegistryError struct {
	Status int
	Code   int
	Detail string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("schema registry: status %d (code %d): %s", e.Status, e.Code, e.Detail)
}

// SchemaRegistryClient registers JSON schemas with a Confluent-compatible registry.
type SchemaRegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSchemaRegistryClient constructs a client with a bounded request timeout.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type schemaRequest struct {
	SchemaType string `json:"schemaType"`
	Schema     string `json:"schema"`
}

type schemaResponse struct {
	ID int `json:"id"`
}

// EnsureSchema returns the id of schema under subject, registering it as a new
// version when the registry does not know this exact schema yet.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	path := "/subjects/" + url.PathEscape(subject)

	id, err := c.post(ctx, path, schema)
	if err == nil {
		return id, nil
	}
	var regErr *RegistryError
	if !errors.As(err, &regErr) || regErr.Status != http.StatusNotFound {
		return 0, fmt.Errorf("lookup schema %s: %w", subject, err)
	}

	id, err = c.post(ctx, path+"/versions", schema)
	if err != nil {
		return 0, fmt.Errorf("register schema %s: %w", subject, err)
	}
	return id, nil
}

func (c *SchemaRegistryClient) post(ctx context.Context, path, schema string) (int, error) {
	body, err := json.Marshal(schemaRequest{SchemaType: "JSON", Schema: schema})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", schemaRegistryContentType)
	req.Header.Set("Accept", schemaRegistryContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		regErr := &RegistryError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(data))}
		var payload struct {
			ErrorCode int    `json:"error_code"`
			Message   string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			regErr.Code = payload.ErrorCode
			regErr.Detail = payload.Message
		}
		return 0, regErr
	}

	var payload schemaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode schema registry response: %w", err)
	}
	return payload.ID, nil
}
