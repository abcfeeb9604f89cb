// Package oracle holds the HTTP clients for the external price estimation
// services.
package oracle

import (
	"fmt"
	"io"
	"net/http"

	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
)

// maxResponseBytes bounds how much of an oracle reply is read.
const maxResponseBytes = 1 << 20

// New returns the oracle selected by configuration
func New(cfg *config.Config) (quote.Oracle, error) {
	client := &http.Client{Timeout: cfg.External.Oracle.Timeout}

	switch cfg.External.Oracle.Mode {
	case config.OracleModeAnalyzer:
		return NewAnalyzerClient(cfg.External.Oracle.AnalyzerURL, client), nil
	case config.OracleModeTextGen:
		return NewTextGenClient(cfg.External.Oracle.TextGenURL, cfg.External.Oracle.TextGenAPIKey, cfg.External.Oracle.TextGenModel, client), nil
	default:
		return nil, fmt.Errorf("unknown oracle mode %q", cfg.External.Oracle.Mode)
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperror.Upstream("No se pudo leer la respuesta del servicio de presupuestos", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, apperror.Upstream(
			"El servicio de presupuestos respondió con error",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
