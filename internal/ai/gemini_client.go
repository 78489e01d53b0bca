package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/xelth-com/wotrack/internal/utils"
	"google.golang.org/api/option"
)

// ErrNoCodeFound is returned when the model could not read a code off the image
var ErrNoCodeFound = errors.New("no work order code found in image")

// minDigits is the shortest answer accepted as a code
const minDigits = 5

// GeminiClient reads work order codes from document photos with Google Gemini
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

// Close closes the client connection
func (c *GeminiClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// ExtractCode sends the image with the extraction prompt and returns the
// digits the model found. ErrNoCodeFound means the model answered but saw no
// code; any other error is a transport or API failure.
func (c *GeminiClient) ExtractCode(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	resp, err := c.model.GenerateContent(ctx,
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(ExtractCodePrompt),
	)
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoCodeFound
	}

	var answer strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			answer.WriteString(string(txt))
		}
	}

	code, err := ParseAnswer(answer.String())
	if err != nil {
		log.Printf("🔍 OCR: model found no code (answer %q)", answer.String())
		return "", err
	}
	log.Printf("🔍 OCR: extracted %s", code)
	return code, nil
}

// ParseAnswer turns the model's reply into a digit string. A reply of null
// or with fewer than five digits is ErrNoCodeFound.
func ParseAnswer(text string) (string, error) {
	text = utils.StripCodeFence(text)
	if text == "" || strings.Contains(strings.ToLower(text), "null") {
		return "", ErrNoCodeFound
	}

	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() < minDigits {
		return "", ErrNoCodeFound
	}
	return digits.String(), nil
}

// imageFormat maps a MIME type to the short format name genai expects
func imageFormat(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	switch mimeType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	default:
		return "jpeg"
	}
}
