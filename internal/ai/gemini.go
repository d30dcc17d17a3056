package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/terraincognita07/fittrack/internal/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"
)

const (
	DefaultModel    = "models/gemini-2.0-flash"
	DefaultEndpoint = "https://generativelanguage.googleapis.com/"
)

type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// GeminiSuggester calls the v1beta generateContent REST method. The API key rides on every
// request through the google api transport.
type GeminiSuggester struct {
	client   *http.Client
	endpoint string
	model    string
	timeout  time.Duration
	log      *logger.Logger
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func NewGeminiSuggester(ctx context.Context, cfg GeminiConfig, log *logger.Logger) (*GeminiSuggester, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrSuggesterOffline
	}
	if log == nil {
		log = logger.Nop()
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client, resolved, err := htransport.NewClient(ctx,
		option.WithAPIKey(cfg.APIKey),
		option.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("create generative language client: %w", err)
	}
	if resolved != "" {
		endpoint = resolved
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GeminiSuggester{
		client:   client,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		model:    model,
		timeout:  timeout,
		log:      log.With("component", "gemini"),
	}, nil
}

func (suggester *GeminiSuggester) Suggest(ctx context.Context, profile Profile) ([]Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, suggester.timeout)
	defer cancel()

	started := time.Now()
	response, err := suggester.generate(ctx, BuildPrompt(profile))
	if err != nil {
		return nil, err
	}

	text, err := responseText(response)
	if err != nil {
		return nil, err
	}
	suggestions, err := ParseSuggestions(text)
	if err != nil {
		return nil, err
	}

	suggester.log.Debug("suggestions generated",
		"model", suggester.model,
		"count", len(suggestions),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return suggestions, nil
}

func (suggester *GeminiSuggester) generate(ctx context.Context, prompt string) (*generateContentResponse, error) {
	body, err := json.Marshal(generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	url := suggester.endpoint + "/v1beta/" + suggester.model + ":generateContent"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := suggester.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	defer response.Body.Close()

	if err := googleapi.CheckResponse(response); err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var decoded generateContentResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	return &decoded, nil
}

func responseText(response *generateContentResponse) (string, error) {
	if response == nil {
		return "", ErrNoSuggestions
	}
	for _, candidate := range response.Candidates {
		if candidate.Content == nil {
			continue
		}
		var builder strings.Builder
		for _, part := range candidate.Content.Parts {
			builder.WriteString(part.Text)
		}
		if text := strings.TrimSpace(builder.String()); text != "" {
			return text, nil
		}
	}
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return "", errors.New("prompt blocked: " + response.PromptFeedback.BlockReason)
	}
	return "", ErrNoSuggestions
}
