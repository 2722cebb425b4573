package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mamiland-backend-go/internal/metrics"
	"mamiland-backend-go/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	// NoAnswerReply is shown when the service answers with nothing usable.
	NoAnswerReply = "متأسفم، نتونستم جواب مناسبی پیدا کنم. دوباره امتحان کن!"
	// UnavailableReply is shown when the service cannot be reached.
	UnavailableReply = "متأسفم، مشکلی در اتصال به سرور پیش اومده. لطفاً یه کم دیگه صبر کن و دوباره امتحان کن."
)

var ErrEmptyAnswer = errors.New("assistant: empty answer")

// Completer turns a prompt into an answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client calls the completion endpoint: GET {BaseURL}?text=<prompt>,
// answering {"answer": "..."}.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type completionResponse struct {
	Answer string `json:"answer"`
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	endpoint, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("assistant: parse url: %w", err)
	}
	query := endpoint.Query()
	query.Set("text", prompt)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("assistant: unexpected status %d", resp.StatusCode)
	}
	var payload completionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return "", fmt.Errorf("assistant: decode: %w", err)
	}
	answer := strings.TrimSpace(payload.Answer)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

// Relay produces the assistant's reply for a completed profile. It never
// fails: errors from the service become one of the fixed apologies.
type Relay struct {
	AI Completer
}

func (r Relay) Reply(ctx context.Context, profile *models.UserProfile, history []Turn) string {
	start := time.Now()
	answer, err := r.AI.Complete(ctx, BuildPrompt(profile, history))
	metrics.AIRequestDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.AIRequestsTotal.WithLabelValues("ok").Inc()
		return answer
	case errors.Is(err, ErrEmptyAnswer):
		metrics.AIRequestsTotal.WithLabelValues("empty").Inc()
		return NoAnswerReply
	default:
		metrics.AIRequestsTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("ai completion failed")
		return UnavailableReply
	}
}
