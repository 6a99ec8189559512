// Package anthropic classifies image crops with the Anthropic messages API.
package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/okian/autolabel/internal/adapters/httpclient"
	"github.com/okian/autolabel/internal/adapters/imaging"
	"github.com/okian/autolabel/internal/domain/model"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-20250514"
	apiVersion     = "2023-06-01"
	maxTokens      = 256
)

// Classifier handles crop classification via the Anthropic API.
type Classifier struct {
	endpoint   string
	model      string
	vocabulary map[string]string // lowercased name -> canonical name
	client     *httpclient.Client
}

// New creates a Classifier authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Classifier, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	o := options{baseURL: defaultBaseURL, model: DefaultModel}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Classifier{
		endpoint: strings.TrimRight(o.baseURL, "/") + "/v1/messages",
		model:    o.model,
		client: httpclient.New(o.httpClient, map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": apiVersion,
		}),
	}
	if len(o.vocabulary) > 0 {
		c.vocabulary = make(map[string]string, len(o.vocabulary))
		for _, v := range o.vocabulary {
			c.vocabulary[strings.ToLower(strings.TrimSpace(v))] = v
		}
	}
	return c, nil
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Classifications implements vision.Classifier. The answer is read as a
// comma or newline separated list of names, most relevant first.
func (c *Classifier) Classifications(ctx context.Context, img image.Image, prompt string, n int) ([]model.Classification, error) {
	data, err := imaging.EncodeJPEG(img)
	if err != nil {
		return nil, err
	}

	req := apiRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []apiMessage{{
			Role: "user",
			Content: []contentBlock{
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: "image/jpeg",
					Data:      base64.StdEncoding.EncodeToString(data),
				}},
				{Type: "text", Text: instruction(prompt, n)},
			},
		}},
	}

	var resp apiResponse
	if err := c.client.PostJSON(ctx, c.endpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", httpclient.ErrBadResponse, resp.Error.Message)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
			text.WriteString("\n")
		}
	}

	return c.parse(text.String(), n), nil
}

func instruction(prompt string, n int) string {
	if n <= 0 {
		return prompt
	}
	return fmt.Sprintf("%s\nAnswer with at most %d name(s) from the list, comma-separated, and nothing else.", prompt, n)
}

// parse splits the answer into labels. With a vocabulary, names outside it
// are dropped and the rest take the vocabulary's spelling.
func (c *Classifier) parse(answer string, n int) []model.Classification {
	answer = strings.TrimSpace(answer)
	answer = strings.TrimPrefix(answer, "```")
	answer = strings.TrimSuffix(answer, "```")

	fields := strings.FieldsFunc(answer, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]model.Classification, 0, len(fields))
	for _, f := range fields {
		name := strings.Trim(strings.TrimSpace(f), "-*•.\"'")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if c.vocabulary != nil {
			canonical, ok := c.vocabulary[strings.ToLower(name)]
			if !ok {
				continue
			}
			name = canonical
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, model.Classification{ClassName: name, Confidence: 1})
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// Option applies a configuration option to the Classifier.
type Option func(*options)

type options struct {
	baseURL    string
	model      string
	vocabulary []string
	httpClient *http.Client
}

// WithModel selects the model.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL points the client at another API host.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithVocabulary restricts answers to the given closed set of names.
func WithVocabulary(names ...string) Option {
	return func(o *options) {
		o.vocabulary = append(o.vocabulary, names...)
	}
}

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}
