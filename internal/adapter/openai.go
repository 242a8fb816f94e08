package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/scramble-ai/scramble/internal/apperr"
)

const chatCompletionsPath = "/chat/completions"

var openAIDefaultBaseURLs = map[ProviderKind]string{
	OpenAI:     "https://api.openai.com/v1/",
	Groq:       "https://api.groq.com/openai/v1/",
	OpenRouter: "https://openrouter.ai/api/v1/",
	LMStudio:   "http://localhost:1234/v1/",
}

// OpenAIAdapter speaks the chat-completions protocol shared by OpenAI, Groq,
// OpenRouter and LM Studio: a system message followed by one user message.
type OpenAIAdapter struct {
	Provider ProviderKind
	// BaseURL replaces the provider's default API root (".../v1/"). A request
	// Endpoint names the full chat-completions URL and is sent to as is.
	BaseURL string
	Client  *http.Client
}

func (o *OpenAIAdapter) Name() string { return o.Provider.DisplayName() }

func (o *OpenAIAdapter) Kind() ProviderKind { return o.Provider }

func (o *OpenAIAdapter) Invoke(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	name := o.Name()
	if err := o.gate(req); err != nil {
		return GenerationResult{}, err
	}
	model := req.Model
	if model == "" {
		model = o.Provider.DefaultModel()
	}

	opts, err := o.options(req)
	if err != nil {
		return GenerationResult{}, err
	}
	client := openai.NewClient(opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemInstruction),
			openai.UserMessage(req.FullPrompt),
		},
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return GenerationResult{}, apperr.HTTP(name, apiErr.StatusCode, apiErr.Message)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return GenerationResult{}, apperr.Timeout(name, err)
		}
		return GenerationResult{}, fmt.Errorf("%s: request: %w", o.Provider, err)
	}

	// The SDK decodes leniently, so presence is checked on the raw body.
	content := gjson.Get(resp.RawJSON(), "choices.0.message.content")
	if content.Type != gjson.String {
		return GenerationResult{}, apperr.Protocol(name, http.StatusOK, `missing "choices[0].message.content" field`)
	}
	text := strings.TrimSpace(content.Str)
	if text == "" {
		return GenerationResult{}, apperr.Protocol(name, http.StatusOK, "empty text")
	}
	return GenerationResult{Text: text}, nil
}

// gate fails fast, before any network I/O, when the request cannot be served.
func (o *OpenAIAdapter) gate(req GenerationRequest) error {
	name := o.Name()
	if o.Provider.Hosted() && req.APIKey == "" {
		return apperr.Configuration(name, fmt.Sprintf("%s API key not set. Please configure it in Scramble settings.", name))
	}
	if req.Model == "" && o.Provider.DefaultModel() == "" {
		return apperr.Configuration(name, fmt.Sprintf("Model not set for %s. Please configure it in Scramble settings.", name))
	}
	return nil
}

func (o *OpenAIAdapter) options(req GenerationRequest) ([]option.RequestOption, error) {
	opts := []option.RequestOption{
		option.WithBaseURL(o.baseURL()),
		option.WithMaxRetries(0),
	}
	if req.Endpoint != "" {
		endpoint, err := parseEndpoint(o.Name(), req.Endpoint)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithMiddleware(func(r *http.Request, next option.MiddlewareNext) (*http.Response, error) {
			u := *endpoint
			r.URL = &u
			r.Host = u.Host
			return next(r)
		}))
	}
	if o.Client != nil {
		opts = append(opts, option.WithHTTPClient(o.Client))
	}
	if req.APIKey != "" {
		opts = append(opts, option.WithAPIKey(req.APIKey))
	} else {
		// Local servers get no Authorization header, even if OPENAI_API_KEY is set.
		opts = append(opts, option.WithHeaderDel("Authorization"))
	}
	if o.Provider == OpenRouter {
		opts = append(opts,
			option.WithHeader("X-Title", "Scramble Browser Extension"),
			option.WithHeader("HTTP-Referer", "https://github.com/nicholasgriffintn/scramble"),
		)
	}
	return opts, nil
}

// parseEndpoint validates a full chat-completions URL override. It is used
// as given, query string included.
func parseEndpoint(name, endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperr.Configuration(name, fmt.Sprintf("Invalid endpoint URL for %s: %s", name, endpoint))
	}
	return u, nil
}

func (o *OpenAIAdapter) baseURL() string {
	base := o.BaseURL
	if base == "" {
		base = openAIDefaultBaseURLs[o.Provider]
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// modelsURL locates the model list next to the chat endpoint. An override
// whose path does not end in /chat/completions has no known model list.
func (o *OpenAIAdapter) modelsURL(req GenerationRequest) (string, bool, error) {
	if req.Endpoint == "" {
		return o.baseURL() + "models", true, nil
	}
	u, err := parseEndpoint(o.Name(), req.Endpoint)
	if err != nil {
		return "", false, err
	}
	path := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(path, chatCompletionsPath) {
		return "", false, nil
	}
	u.Path = strings.TrimSuffix(path, chatCompletionsPath) + "/models"
	u.RawPath = ""
	return u.String(), true, nil
}

// Check gates hosted providers on their credential and probes the model list
// of local servers.
func (o *OpenAIAdapter) Check(ctx context.Context, req GenerationRequest) error {
	if err := o.gate(req); err != nil {
		return err
	}
	if o.Provider.Hosted() {
		return nil
	}
	target, ok, err := o.modelsURL(req)
	if err != nil || !ok {
		return err
	}
	if err := probe(ctx, o.Client, target); err != nil {
		return fmt.Errorf("%s unreachable: %w", o.Provider, err)
	}
	return nil
}
