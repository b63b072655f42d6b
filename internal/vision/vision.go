// Package vision asks a hosted vision model whether a photo proves a goal was met.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/templui/codekeeper/internal/imagecodec"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

var (
	ErrMissingAPIKey = errors.New("vision api key is required")
	ErrEmptyAnswer   = errors.New("vision model returned no text")
)

// generator is the slice of the genai Models service the client needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config selects the key and model. Timeout bounds each request.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	gen   generator
	model string
}

// New builds a client for the Gemini API.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newClient(gc.Models, cfg.Model), nil
}

func newClient(gen generator, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{gen: gen, model: model}
}

// Prompt is the instruction sent alongside the proof photo.
func Prompt(goal string) string {
	return fmt.Sprintf("Analyze the attached image. The user's goal was: '%s'. "+
		"Does this image provide reasonable visual proof that the user has achieved this goal? "+
		"Your response must be a single word: either YES or NO. "+
		"Do not provide any other explanation or text.", goal)
}

// IsAffirmative accepts exactly "YES", ignoring case and surrounding whitespace.
func IsAffirmative(answer string) bool {
	return strings.ToUpper(strings.TrimSpace(answer)) == "YES"
}

// Verify reports whether the model judged the proof photo to show the goal achieved.
// Transport, auth and decoding failures are all negative verdicts.
func (c *Client) Verify(ctx context.Context, goal, proofDataURI string) bool {
	mimeType, data, err := imagecodec.Bytes(proofDataURI)
	if err != nil {
		slog.Warn("vision proof image could not be decoded", "error", err)
		return false
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(Prompt(goal)),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	answer, err := c.generate(ctx, contents)
	if err != nil {
		slog.Warn("vision verification failed", "error", err, "model", c.model)
		return false
	}

	ok := IsAffirmative(answer)
	slog.Info("vision verification answered", "model", c.model, "verified", ok)
	return ok
}

// Ping sends a tiny text-only request to check that the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.generate(ctx, genai.Text("Reply with the single word OK."))
	return err
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := c.gen.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrEmptyAnswer
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}
