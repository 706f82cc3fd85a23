package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// GoogleConfig holds configuration for the Vertex AI engine.
type GoogleConfig struct {
	baseConfig
	ProjectID       string `json:"project_id"`
	Location        string `json:"location"`
	CredentialsFile string `json:"credentials_file"`
	Model           string `json:"model"`
}

// Load loads the Google configuration with environment fallbacks.
func (c *GoogleConfig) Load() error {
	if err := c.loadConfig(c.ConfigPath, "google", c); err != nil {
		return err
	}

	if c.ProjectID == "" {
		c.ProjectID = os.Getenv("GOOGLE_PROJECT_ID")
	}
	if c.Location == "" {
		c.Location = os.Getenv("GOOGLE_LOCATION")
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	}
	if c.Model == "" {
		c.Model = "gemini-pro-vision"
	}

	return nil
}

// GoogleEngine transcribes labels with a Vertex AI vision model. It reads the
// whole label in one call, which handles curved packaging and small print
// better than local recognition.
type GoogleEngine struct {
	config GoogleConfig
	client *genai.Client
	model  *genai.GenerativeModel
}

// GoogleEngineFactory implements EngineFactory for Vertex AI engines.
type GoogleEngineFactory struct {
	config GoogleConfig
}

func NewGoogleEngineFactory(config GoogleConfig) *GoogleEngineFactory {
	return &GoogleEngineFactory{config: config}
}

func (f *GoogleEngineFactory) CreateEngine() (Engine, error) {
	if f.config.ProjectID == "" {
		return nil, fmt.Errorf("google ocr requires a project id")
	}
	return &GoogleEngine{config: f.config}, nil
}

// Load initializes the Vertex AI client.
func (e *GoogleEngine) Load(ctx context.Context) error {
	opts := []option.ClientOption{}
	if e.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(e.config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, e.config.ProjectID, e.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("create vertex ai client: %w", err)
	}

	e.client = client
	e.model = client.GenerativeModel(e.config.Model)
	return nil
}

const labelPrompt = `Transcribe all text printed on this food product label.
Return the text exactly as written, one line per printed line. Include the
nutrition facts table, the ingredient list and any claims on the packaging.
Do not summarize, translate or add commentary.`

// ExtractText transcribes the label image.
func (e *GoogleEngine) ExtractText(ctx context.Context, image []byte, mime string) (string, error) {
	if e.model == nil {
		return "", fmt.Errorf("engine not loaded")
	}

	format := strings.TrimPrefix(mime, "image/")
	if format == "" || strings.Contains(format, "/") {
		format = "jpeg"
	}
	img := genai.ImageData(format, image)

	resp, err := e.model.GenerateContent(ctx, genai.Text(labelPrompt), img)
	if err != nil {
		return "", fmt.Errorf("call vision model: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response generated")
	}
	candidate := resp.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	text := fmt.Sprintf("%v", candidate.Content.Parts[0])
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text recognized on the label")
	}
	return text, nil
}
