package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"inspectbot/internal/validation"
)

const (
	maxTokens      = 100
	maxImageBytes  = 8 << 20
	defaultModel   = "gpt-4o-mini"
	systemPrompt   = `You read Korean food product documents (labels, 품목제조보고서, 영업신고증). Reply with a JSON object {"food_type": "<식품유형>"} holding the 식품유형 printed on the document, verbatim in Korean. Use an empty string when no food type is printed.`
	userPromptText = "이 이미지의 식품유형을 알려주세요."
)

// OpenAIExtractor asks a vision-capable chat model for the food type printed on
// an image. The image is fetched locally and sent inline so the model never
// reaches the user-supplied URL.
type OpenAIExtractor struct {
	client   *openai.Client
	model    string
	http     *http.Client
	validate func(ctx context.Context, raw string) (*url.URL, error)
}

// NewOpenAIExtractor creates an extractor. baseURL may be empty for the public API.
func NewOpenAIExtractor(apiKey, baseURL, model string, fetchTimeout time.Duration) *OpenAIExtractor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultModel
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	e := &OpenAIExtractor{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		validate: func(ctx context.Context, raw string) (*url.URL, error) {
			return validation.ValidatePublicURL(ctx, nil, raw)
		},
	}
	e.http = &http.Client{
		Timeout: fetchTimeout,
		// Every redirect hop must also point at a public address.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			_, err := e.validate(req.Context(), req.URL.String())
			return err
		},
	}
	return e
}

// Extract implements Extractor.
func (e *OpenAIExtractor) Extract(ctx context.Context, imageURL string) (string, error) {
	u, err := e.validate(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("image url rejected: %w", err)
	}

	dataURL, err := e.download(ctx, u.String())
	if err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model: e.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPromptText},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailHigh},
					},
				},
			},
		},
	}
	if isReasoningModel(e.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}

	return parseFoodType(resp.Choices[0].Message.Content)
}

func (e *OpenAIExtractor) download(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(body) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	contentType := http.DetectContentType(body)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unexpected content type %q", contentType)
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}

func parseFoodType(content string) (string, error) {
	var out struct {
		FoodType string `json:"food_type"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return "", fmt.Errorf("failed to decode completion: %w", err)
	}
	foodType := strings.TrimSpace(out.FoodType)
	if foodType == "" {
		return "", ErrNoFoodType
	}
	return foodType, nil
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}
