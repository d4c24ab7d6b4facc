package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/httpclient"
)

// Contact is a user's addressable contact points outside the push channel.
type Contact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Directory resolves user contact points. The engine keeps no user profiles
// of its own; the platform user service owns them.
type Directory interface {
	Contact(ctx context.Context, userID string) (*Contact, error)
}

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPDirectory resolves contacts from the Zipzy user service.
type HTTPDirectory struct {
	client  HTTPDoer
	baseURL string
}

// NewHTTPDirectory creates a directory backed by the user service at baseURL.
func NewHTTPDirectory(client HTTPDoer, baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		client:  client,
		baseURL: baseURL,
	}
}

// Contact fetches the user's phone and email from the user service.
func (d *HTTPDirectory) Contact(ctx context.Context, userID string) (*Contact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/api/v1/users/"+userID+"/contact", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create contact request: %w", err)
	}

	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call user service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "user")
	}

	var body struct {
		Data Contact `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode contact response: %w", err)
	}

	return &body.Data, nil
}
