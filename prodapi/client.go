package prodapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
)

type apiClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
	limiter   <-chan time.Time
}

func newAPIClient(apiKey string) (*apiClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("PRODOFFICE_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.pitiproduction.com"
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("PRODOFFICE_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("production office api key is empty")
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("PRODOFFICE_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &apiClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	<-c.limiter
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return utils.NewUpstreamError("production office api unreachable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return utils.NewUpstreamError(
			fmt.Sprintf("production office api error %d", resp.StatusCode),
			errors.New(strings.TrimSpace(string(body))))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return utils.NewUpstreamError("production office api returned malformed json", err)
	}
	return nil
}

func (c *apiClient) putJSON(ctx context.Context, path string, payload interface{}) error {
	<-c.limiter
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return utils.NewUpstreamError("production office api unreachable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return utils.NewUpstreamError(
			fmt.Sprintf("production office api error %d", resp.StatusCode),
			errors.New(strings.TrimSpace(string(body))))
	}
	return nil
}
