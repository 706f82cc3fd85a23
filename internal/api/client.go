// Package api is the HTTP client for the Fresh Eye analysis backend. Every
// feature talks to the backend through this one client; no call is retried
// automatically, callers decide what a failure means for their page.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fresheye/fresheye/internal/analysis"
	"github.com/fresheye/fresheye/internal/models"
)

const defaultTimeout = 10 * time.Second

// Client talks to the analysis backend.
type Client struct {
	base   *url.URL
	client *http.Client
}

// New builds a client for the backend at baseURL. Pass nil to use a default
// HTTP client with a 10 second timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: scheme and host required", baseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{base: u, client: httpClient}, nil
}

// StatusError is a non-2xx response from the backend. Message carries the
// backend's own error text when the body was an error envelope.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Code)
}

// PredictSpoilage uploads an image for freshness classification and returns
// the normalized result. filename is only a hint for the backend's upload
// handling; pass "" for captured frames.
func (c *Client) PredictSpoilage(ctx context.Context, image []byte, filename string) (*analysis.Spoilage, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("no image data to analyze")
	}
	if filename == "" {
		filename = "capture.jpg"
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	if _, err = part.Write(image); err != nil {
		return nil, fmt.Errorf("write image part: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/predict_from_esp32", nil), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return analysis.NormalizeSpoilage(resp)
}

// LatestPrediction fetches the most recent classification the backend made,
// regardless of which device triggered it.
func (c *Client) LatestPrediction(ctx context.Context) (*analysis.Spoilage, error) {
	resp, err := c.get(ctx, "/get_latest_prediction_result", nil)
	if err != nil {
		return nil, err
	}
	return analysis.NormalizeSpoilage(resp)
}

// ExtractNutrition sends label text for nutrition analysis and returns the
// normalized record.
func (c *Client) ExtractNutrition(ctx context.Context, text string) (*analysis.Nutrition, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no label text to analyze")
	}
	resp, err := c.postJSON(ctx, "/extract_nutrition", map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	return analysis.NormalizeNutrition(resp)
}

// Frame is one JPEG frame from the remote camera.
type Frame struct {
	Data        []byte
	ContentType string
	FetchedAt   time.Time
}

// LatestFrame fetches the newest remote camera frame. The timestamp query
// parameter defeats intermediate caches so polling always sees fresh bytes.
func (c *Client) LatestFrame(ctx context.Context) (*Frame, error) {
	q := url.Values{"t": {strconv.FormatInt(time.Now().UnixMilli(), 10)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/latest_esp32_image", q), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	response, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: response.StatusCode, Message: analysis.BackendMessage(data)}
	}

	ct := response.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	return &Frame{Data: data, ContentType: ct, FetchedAt: time.Now()}, nil
}

// IoTData fetches the current reading of the backend-attached sensor.
func (c *Client) IoTData(ctx context.Context) (models.SensorReading, error) {
	var reading models.SensorReading
	resp, err := c.get(ctx, "/get_iot_data", nil)
	if err != nil {
		return reading, err
	}
	if err := json.Unmarshal(resp, &reading); err != nil {
		return reading, fmt.Errorf("decode sensor data: %w", err)
	}
	return reading, nil
}

// LatestNodeMCU fetches the reading pushed by the WiFi sensor node. The
// endpoint has no connected flag, so it is derived from the update stamp.
func (c *Client) LatestNodeMCU(ctx context.Context) (models.SensorReading, error) {
	var reading models.SensorReading
	resp, err := c.get(ctx, "/get_latest_nodemcu_dht", nil)
	if err != nil {
		return reading, err
	}
	if err := json.Unmarshal(resp, &reading); err != nil {
		return reading, fmt.Errorf("decode sensor data: %w", err)
	}
	reading.Connected = reading.LastUpdate != "" && reading.LastUpdate != "Never"
	return reading, nil
}

// SetSerialPort tells the backend which serial port its wired sensor is on.
func (c *Client) SetSerialPort(ctx context.Context, port string) error {
	if strings.TrimSpace(port) == "" {
		return fmt.Errorf("no serial port given")
	}
	_, err := c.postJSON(ctx, "/set_port", map[string]string{"port": port})
	return err
}

// SendEmail asks the backend to mail a nutrition report to the address.
func (c *Client) SendEmail(ctx context.Context, email string, nutrition *analysis.Nutrition) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("no email address given")
	}
	if nutrition == nil {
		return fmt.Errorf("no nutrition data to share")
	}
	payload := map[string]any{
		"email":         email,
		"nutritionData": nutrition,
	}
	_, err := c.postJSON(ctx, "/send_email", payload)
	return err
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	response, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Code: response.StatusCode, Message: analysis.BackendMessage(body)}
	}
	return body, nil
}
