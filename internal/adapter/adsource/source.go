package adsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adledger/internal/core/domain"
)

// Source fetches campaign snapshot trees from the ads platform's export
// endpoint. It implements port.SnapshotSource; retries and backoff are
// left to the scheduler that drives it.
type Source struct {
	baseURL string
	client  *http.Client
}

// New returns a Source for the given base URL. Campaigns for an account
// are expected at GET {baseURL}/accounts/{accountID}/campaigns as a
// JSON array of snapshots.
func New(baseURL string) *Source {
	return &Source{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchCampaigns returns the current campaign snapshots of one account.
func (s *Source) FetchCampaigns(ctx context.Context, accountID string) ([]domain.CampaignSnapshot, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/campaigns", s.baseURL, url.PathEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch campaigns for account %s: status %d", accountID, resp.StatusCode)
	}

	var snapshots []domain.CampaignSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshots); err != nil {
		return nil, fmt.Errorf("decode campaigns for account %s: %w", accountID, err)
	}
	return snapshots, nil
}
