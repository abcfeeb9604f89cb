package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
)

// TextGenClient asks a chat-completions style text generation API for a
// pricing narrative.
type TextGenClient struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewTextGenClient creates a text generation client
func NewTextGenClient(url, apiKey, model string, client *http.Client) *TextGenClient {
	return &TextGenClient{url: url, apiKey: apiKey, model: model, client: client}
}

// Estimate sends the pricing prompt and returns the generated narrative
func (c *TextGenClient) Estimate(ctx context.Context, req quote.OracleRequest) (*quote.OracleResponse, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "Respondé siempre en español rioplatense y en pesos argentinos."},
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal text generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create text generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperror.Upstream("No se pudo contactar al servicio de presupuestos", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperror.Upstream("Respuesta inválida del servicio de presupuestos", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, apperror.Upstream("Respuesta inválida del servicio de presupuestos", fmt.Errorf("no choices in reply"))
	}

	return &quote.OracleResponse{
		Narrative: strings.TrimSpace(parsed.Choices[0].Message.Content),
		Raw:       string(body),
	}, nil
}
