package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/m4xw311/agentchat/errors"
)

const (
	publicCardPath   = "/.well-known/agent.json"
	extendedCardPath = "/agent/authenticatedExtendedCard"
)

// Skill is one advertised capability of an agent.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

// Card is the agent's self-description served next to its endpoint.
type Card struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Version     string  `json:"version"`
	Skills      []Skill `json:"skills"`

	SupportsAuthenticatedExtendedCard bool `json:"supportsAuthenticatedExtendedCard"`
}

// DisplayName returns the card's name with a fallback for anonymous agents.
func (c *Card) DisplayName() string {
	if c == nil || c.Name == "" {
		return "Agent"
	}
	return c.Name
}

// PrimarySkill returns the description and examples of the first advertised
// skill, used for the welcome banner.
func (c *Card) PrimarySkill() (description string, examples []string) {
	if c == nil || len(c.Skills) == 0 {
		return "", nil
	}
	return c.Skills[0].Description, c.Skills[0].Examples
}

// FetchCard retrieves the agent card from baseURL. When the public card
// advertises an authenticated extended card and a token is available, the
// extended card is preferred; failure to fetch it falls back to the public
// one rather than failing discovery.
func FetchCard(ctx context.Context, client *http.Client, baseURL, token string) (*Card, error) {
	if client == nil {
		client = http.DefaultClient
	}

	card, err := getCard(ctx, client, baseURL+publicCardPath, "")
	if err != nil {
		return nil, errors.Wrapf(err, "fetching agent card from %s", baseURL)
	}

	if card.SupportsAuthenticatedExtendedCard && token != "" {
		if extended, err := getCard(ctx, client, baseURL+extendedCardPath, token); err == nil {
			return extended, nil
		}
	}
	return card, nil
}

func getCard(ctx context.Context, client *http.Client, url, token string) (*Card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent card request returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var card Card
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("parsing agent card: %w", err)
	}
	return &card, nil
}
