package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

// AnalyzerClient sends the design image to the image analysis service,
// which measures the neon length of the drawing.
type AnalyzerClient struct {
	baseURL string
	client  *http.Client
}

type analyzeResponse struct {
	LengthCM *decimal.Decimal `json:"length_cm"`
}

// NewAnalyzerClient creates an image analysis client
func NewAnalyzerClient(baseURL string, client *http.Client) *AnalyzerClient {
	return &AnalyzerClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Estimate uploads the image and returns the measured neon length
func (c *AnalyzerClient) Estimate(ctx context.Context, req quote.OracleRequest) (*quote.OracleResponse, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("image", req.ImageName)
	if err != nil {
		return nil, fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, fmt.Errorf("failed to write image part: %w", err)
	}
	if err := form.WriteField("height_cm", req.HeightCM.String()); err != nil {
		return nil, fmt.Errorf("failed to write height: %w", err)
	}
	if err := form.WriteField("width_cm", req.WidthCM.String()); err != nil {
		return nil, fmt.Errorf("failed to write width: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperror.Upstream("No se pudo contactar al servicio de análisis", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperror.Upstream("Respuesta inválida del servicio de análisis", err)
	}
	if parsed.LengthCM == nil || !parsed.LengthCM.IsPositive() {
		return nil, apperror.Upstream("Respuesta inválida del servicio de análisis", fmt.Errorf("missing length_cm: %s", truncate(string(body), 200)))
	}

	return &quote.OracleResponse{LengthCM: parsed.LengthCM, Raw: string(body)}, nil
}
