package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultRequestTimeout = 15 * time.Second

// HTTPService talks to the CRM profile API over HTTP.
type HTTPService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPService(logger *slog.Logger, baseURL, apiKey string) *HTTPService {
	return &HTTPService{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		logger:  logger,
	}
}

func (s *HTTPService) AddTags(ctx context.Context, customerID string, tags []string) error {
	payload := map[string]any{"tags": tags}

	return s.post(ctx, fmt.Sprintf("%s/customers/%s/tags", s.baseURL, customerID), payload)
}

func (s *HTTPService) ApplyDiscount(ctx context.Context, customerID string, discount Discount) error {
	return s.post(ctx, fmt.Sprintf("%s/customers/%s/discounts", s.baseURL, customerID), discount)
}

func (s *HTTPService) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal profile request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create profile request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("profile API returned status %d: %s", resp.StatusCode, string(detail))
	}

	return nil
}
