package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPGoalService is a GoalService backed by the goalpost HTTP API.
type HTTPGoalService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGoalService creates a service client for the given base URL,
// e.g. "https://goalpost.example.com".
func NewHTTPGoalService(baseURL, apiKey string) *HTTPGoalService {
	return &HTTPGoalService{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// wireGoal mirrors the server's goal representation.
type wireGoal struct {
	ID          string            `json:"id"`
	PeriodID    string            `json:"period_id,omitempty"`
	OwnerID     string            `json:"owner_id,omitempty"`
	Variant     Variant           `json:"variant"`
	Status      string            `json:"status"`
	Performance *PerformanceDraft `json:"performance,omitempty"`
	Competency  *CompetencyDraft  `json:"competency,omitempty"`
}

func (g wireGoal) toRemote() RemoteGoal {
	return RemoteGoal{
		ID:     g.ID,
		Status: g.Status,
		Draft: Draft{
			Variant:     g.Variant,
			Performance: g.Performance,
			Competency:  g.Competency,
		},
	}
}

// problemResponse mirrors the server's RFC 7807 error body.
type problemResponse struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// Ping checks connectivity to the server.
func (s *HTTPGoalService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

// CreateGoal creates a draft goal and returns it with its server id.
func (s *HTTPGoalService) CreateGoal(ctx context.Context, periodID, ownerID string, draft Draft) (*RemoteGoal, error) {
	body := wireGoal{
		PeriodID:    periodID,
		OwnerID:     ownerID,
		Variant:     draft.Variant,
		Status:      StatusDraft,
		Performance: draft.Performance,
		Competency:  draft.Competency,
	}

	resp, err := s.send(ctx, http.MethodPost, "/api/v1/goals", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeProblem(resp)
	}

	var created wireGoal
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode created goal: %w", err)
	}
	remote := created.toRemote()
	return &remote, nil
}

// UpdateGoal replaces the variant field set of an existing goal.
func (s *HTTPGoalService) UpdateGoal(ctx context.Context, id string, draft Draft) (*RemoteGoal, error) {
	// Only the field set matching the goal's variant is sent.
	patch := struct {
		Performance *PerformanceDraft `json:"performance,omitempty"`
		Competency  *CompetencyDraft  `json:"competency,omitempty"`
	}{
		Performance: draft.Performance,
		Competency:  draft.Competency,
	}

	resp, err := s.send(ctx, http.MethodPatch, "/api/v1/goals/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeProblem(resp)
	}

	var updated wireGoal
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, fmt.Errorf("decode updated goal: %w", err)
	}
	remote := updated.toRemote()
	return &remote, nil
}

// ListGoals returns the owner's goals in a period.
func (s *HTTPGoalService) ListGoals(ctx context.Context, periodID, ownerID string) ([]RemoteGoal, error) {
	q := url.Values{"owner_id": {ownerID}}
	path := "/api/v1/periods/" + url.PathEscape(periodID) + "/goals?" + q.Encode()

	resp, err := s.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeProblem(resp)
	}

	var list struct {
		Goals []wireGoal `json:"goals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode goal list: %w", err)
	}

	goals := make([]RemoteGoal, 0, len(list.Goals))
	for _, g := range list.Goals {
		goals = append(goals, g.toRemote())
	}
	return goals, nil
}

func (s *HTTPGoalService) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return s.client.Do(req)
}

// decodeProblem turns a non-success response into an error, preferring
// the problem+json detail when the server sent one.
func decodeProblem(resp *http.Response) error {
	var p problemResponse
	if err := json.NewDecoder(resp.Body).Decode(&p); err == nil && p.Detail != "" {
		return fmt.Errorf("server rejected request: %s (status %d)", p.Detail, resp.StatusCode)
	}
	return fmt.Errorf("server rejected request: status %d", resp.StatusCode)
}
