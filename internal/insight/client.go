package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/dashboard"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/request"
)

const (
	analysisModel = "gemini-3-pro-preview"
	insightModel  = "gemini-3-flash-preview"

	analysisFallback = "Gagal melakukan analisis otomatis. Silakan tinjau secara manual."
	insightFallback  = "Gunakan data dashboard untuk memantau performa anggaran."
)

// Client talks to the Gemini generateContent API. Every method degrades
// to a canned Indonesian fallback so a flaky upstream never blocks a
// request workflow or an empty dashboard.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	printer    *message.Printer
}

// NewClient constructs a new client. An empty apiKey leaves the client
// in permanent-fallback mode, which keeps local development keyless.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		printer: message.NewPrinter(language.Indonesian),
	}
}

// AnalyzeRequest produces a short formal review of a budget request.
func (c *Client) AnalyzeRequest(ctx context.Context, req request.Request) string {
	prompt := fmt.Sprintf(`Analisis pengajuan anggaran pemerintah berikut:
Judul: %s
Jumlah: %s
Deskripsi: %s

Berikan analisis singkat (maks 150 kata) mengenai:
1. Apakah pengajuan ini terdengar masuk akal secara biaya?
2. Apa potensi risiko atau ketidakefisienan?
3. Saran untuk peningkatan akuntabilitas.

Gunakan Bahasa Indonesia yang formal dan profesional.`, req.Title, c.rupiah(req.Amount), req.Description)

	text, err := c.generate(ctx, analysisModel, prompt, &generationConfig{Temperature: 0.7, TopP: 0.95})
	if err != nil {
		c.warn("analisis pengajuan gagal", err)
		return analysisFallback
	}
	return text
}

// DashboardInsight produces a one-line strategic summary for leadership.
func (c *Client) DashboardInsight(ctx context.Context, stats dashboard.Stats) string {
	prompt := fmt.Sprintf(`Dashboard Pengajuan Anggaran:
Total Pending: %s
Total Approved: %s

Berikan 1 kalimat insight strategis untuk pimpinan mengenai alokasi anggaran ini.`,
		c.rupiah(stats.TotalAmount), c.rupiah(stats.ApprovedAmount))

	text, err := c.generate(ctx, insightModel, prompt, nil)
	if err != nil {
		c.warn("insight dashboard gagal", err)
		return insightFallback
	}
	return text
}

type generationConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"topP,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, model, prompt string, cfg *generationConfig) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("insight: api key not configured")
	}

	payload, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: cfg,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("insight: model returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", err
	}
	text := firstText(decoded)
	if text == "" {
		return "", fmt.Errorf("insight: empty completion")
	}
	return text, nil
}

func firstText(resp generateResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if trimmed := strings.TrimSpace(p.Text); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func (c *Client) rupiah(amount float64) string {
	return c.printer.Sprintf("Rp %v", number.Decimal(amount, number.MaxFractionDigits(0)))
}

func (c *Client) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "error", err)
	}
}

var (
	_ request.Analyzer        = (*Client)(nil)
	_ dashboard.InsightSource = (*Client)(nil)
)
