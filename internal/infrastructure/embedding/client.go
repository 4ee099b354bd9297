package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"defect-bot/internal/domain/port"
)

// Client обращается к внешнему CLIP-сервису эмбеддингов по HTTP.
// Сервис отвечает нормированными векторами фиксированной длины.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиента сервиса эмбеддингов.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Первый запрос может грузить модель CLIP, это долго.
			Timeout: 2 * time.Minute,
		},
	}
}

type imageRequest struct {
	ImageBase64 string `json:"image_base64"`
}

type textRequest struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// ImageEmbedding считает эмбеддинг изображения по его байтам.
func (c *Client) ImageEmbedding(ctx context.Context, imageData []byte) ([]float64, error) {
	payload := imageRequest{ImageBase64: base64.StdEncoding.EncodeToString(imageData)}
	return c.post(ctx, "/embeddings/image", payload)
}

// TextEmbedding считает эмбеддинг текстового описания.
func (c *Client) TextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return c.post(ctx, "/embeddings/text", textRequest{Text: text})
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]float64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned empty vector")
	}

	return parsed.Embedding, nil
}

// Проверка реализации интерфейса
var _ port.Embedder = (*Client)(nil)
