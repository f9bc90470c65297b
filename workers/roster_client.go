// workers/roster_client.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"meal-claim-system/models"
	"meal-claim-system/utils"
)

// rosterResponse accepts either a bare array or {"teams": [...]}.
type rosterResponse struct {
	Teams []models.SelectedTeam `json:"teams"`
}

func decodeRoster(r io.Reader) ([]models.SelectedTeam, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var teams []models.SelectedTeam
	if err := json.Unmarshal(raw, &teams); err == nil {
		return teams, nil
	}
	var wrapped rosterResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("roster is neither a team array nor {\"teams\": [...]}: %w", err)
	}
	return wrapped.Teams, nil
}

// LoadRosterFile reads a JSON roster exported by the registration side.
func LoadRosterFile(path string) ([]models.SelectedTeam, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster file: %w", err)
	}
	defer f.Close()

	teams, err := decodeRoster(f)
	if err != nil {
		return nil, fmt.Errorf("decode roster file %s: %w", path, err)
	}
	log.Printf("[ROSTER] 📄 loaded %d team(s) from %s", len(teams), path)
	return teams, nil
}

// RosterClient fetches the selected-team roster from the registration service.
type RosterClient struct {
	url          string
	serviceToken string
	httpClient   *http.Client
}

func NewRosterClient(url, serviceToken string) *RosterClient {
	return &RosterClient{
		url:          url,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (c *RosterClient) Fetch(ctx context.Context) ([]models.SelectedTeam, error) {
	log.Printf("[ROSTER] ➡️  GET %s", c.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", c.url, err)
	}
	if c.serviceToken != "" {
		req.Header.Set("X-Service-Token", c.serviceToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			log.Printf("[ROSTER] ⚠️ Failed to read error body from %s: %v", c.url, readErr)
		}
		return nil, fmt.Errorf("roster service returned %d: %s", resp.StatusCode, string(body))
	}

	teams, err := decodeRoster(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode roster response: %w", err)
	}
	log.Printf("[ROSTER] 📥 received %d team(s)", len(teams))
	return teams, nil
}
