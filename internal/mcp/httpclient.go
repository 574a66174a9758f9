package mcp

import (
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

	"github.com/google/uuid"

	"github.com/claude/gymcoach/internal/models"
	"github.com/claude/gymcoach/internal/storage"
)

// errNotFound marks a 404 from the REST API.
var errNotFound = errors.New("not found")

// HTTPClient implements DataSource by calling the GymCoach REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server. The server resolves the user from the
// bearer token or tailnet identity, so the userID arguments are ignored.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. token is
// sent as a bearer token when non-empty.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, errNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) ListWorkouts(ctx context.Context, _ string, limit int) ([]models.WorkoutRecord, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var records []models.WorkoutRecord
	if err := c.get(ctx, "/api/v1/workouts", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPClient) GetWorkout(ctx context.Context, id uuid.UUID, _ string) (*models.WorkoutRecord, error) {
	var rec models.WorkoutRecord
	if err := c.get(ctx, "/api/v1/workouts/"+id.String(), nil, &rec); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) VolumeSeries(ctx context.Context, _ string, bucket string) ([]storage.VolumePoint, error) {
	params := url.Values{}
	params.Set("bucket", bucket)
	var points []storage.VolumePoint
	if err := c.get(ctx, "/api/v1/dashboard/volume", params, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *HTTPClient) GetDataStats(ctx context.Context, _ string) (*storage.DataStats, error) {
	var stats storage.DataStats
	if err := c.get(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) GetProfile(ctx context.Context, _ string) (models.Profile, error) {
	var p models.Profile
	if err := c.get(ctx, "/api/v1/profile", nil, &p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// CurrentDraft reads the draft endpoint. A 404 means no workout is in progress.
func (c *HTTPClient) CurrentDraft(ctx context.Context, _ string) (models.Workout, bool, error) {
	var view struct {
		Workout models.Workout `json:"workout"`
	}
	if err := c.get(ctx, "/api/v1/draft", nil, &view); err != nil {
		if errors.Is(err, errNotFound) {
			return models.Workout{}, false, nil
		}
		return models.Workout{}, false, err
	}
	return view.Workout, true, nil
}
