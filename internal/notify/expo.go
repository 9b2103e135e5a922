package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
)

// DefaultExpoEndpoint is the Expo push send URL.
const DefaultExpoEndpoint = "https://exp.host/--/api/v2/push/send"

// expoMessage is the request body of the Expo push API.
type expoMessage struct {
	To    []string          `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Sound string            `json:"sound,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// expoTicket is one per-token result in the response.
type expoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

type expoResponse struct {
	Data   []expoTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// ExpoGateway delivers notifications through the Expo push HTTP API.
type ExpoGateway struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

// NewExpoGateway creates a gateway. An empty endpoint uses
// DefaultExpoEndpoint; accessToken is optional.
func NewExpoGateway(endpoint, accessToken string) *ExpoGateway {
	if endpoint == "" {
		endpoint = DefaultExpoEndpoint
	}
	return &ExpoGateway{
		endpoint:    endpoint,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Send posts one message addressed to all tokens. It fails when the
// request is rejected or when every token was rejected.
func (g *ExpoGateway) Send(ctx context.Context, n model.ShareNotification) error {
	const op = "sending push notification"

	data, err := json.Marshal(expoMessage{
		To:    n.Tokens,
		Title: "New project shared",
		Body:  fmt.Sprintf("You've been added to the project %q", n.ProjectName),
		Sound: "default",
		Data:  map[string]string{"projectName": n.ProjectName},
	})
	if err != nil {
		return apperr.Wrap(apperr.Notification, op, fmt.Errorf("marshaling request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(data))
	if err != nil {
		return apperr.Wrap(apperr.Notification, op, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if g.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.accessToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Notification, op, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.Notification, op, fmt.Errorf("reading response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.E(apperr.Notification, op, "unexpected status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result expoResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return apperr.Wrap(apperr.Notification, op, fmt.Errorf("unmarshaling response: %w", err))
	}
	if len(result.Errors) > 0 {
		return apperr.E(apperr.Notification, op, "%s: %s", result.Errors[0].Code, result.Errors[0].Message)
	}

	var failures []string
	for _, t := range result.Data {
		if t.Status == "error" {
			failures = append(failures, t.Message)
		}
	}
	if len(result.Data) > 0 && len(failures) == len(result.Data) {
		return apperr.E(apperr.Notification, op, "all tickets rejected: %s", strings.Join(failures, "; "))
	}
	return nil
}
