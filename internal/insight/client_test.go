package insight

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/dashboard"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/request"
)

func geminiStub(t *testing.T, text string, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "rahasia", r.Header.Get("x-goog-api-key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var decoded generateRequest
		require.NoError(t, json.Unmarshal(body, &decoded))
		require.NotEmpty(t, decoded.Contents)
		require.NotEmpty(t, decoded.Contents[0].Parts)
		if capture != nil {
			*capture = decoded.Contents[0].Parts[0].Text
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{
			Candidates: []struct {
				Content content `json:"content"`
			}{{Content: content{Parts: []part{{Text: text}}}}},
		})
	}))
}

func TestAnalyzeRequestFormatsIndonesianPrompt(t *testing.T) {
	var prompt string
	srv := geminiStub(t, "Pengajuan wajar secara biaya.", &prompt)
	defer srv.Close()

	client := NewClient(srv.URL, "rahasia", nil)
	got := client.AnalyzeRequest(context.Background(), request.Request{
		Title:       "Pemantauan Kualitas Air",
		Amount:      7500000,
		Description: "Sampling di 5 titik pantau.",
	})

	assert.Equal(t, "Pengajuan wajar secara biaya.", got)
	assert.Contains(t, prompt, "Judul: Pemantauan Kualitas Air")
	assert.Contains(t, prompt, "Rp 7.500.000")
	assert.Contains(t, prompt, "Bahasa Indonesia yang formal")
}

func TestAnalyzeRequestFallsBackOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "rahasia", nil)
	got := client.AnalyzeRequest(context.Background(), request.Request{Title: "X"})
	assert.Equal(t, analysisFallback, got)
}

func TestAnalyzeRequestFallsBackWithoutAPIKey(t *testing.T) {
	client := NewClient("http://unused", "", nil)
	got := client.AnalyzeRequest(context.Background(), request.Request{Title: "X"})
	assert.Equal(t, analysisFallback, got)
}

func TestDashboardInsightUsesTotals(t *testing.T) {
	var prompt string
	srv := geminiStub(t, "Prioritaskan penyerapan triwulan berjalan.", &prompt)
	defer srv.Close()

	client := NewClient(srv.URL, "rahasia", nil)
	got := client.DashboardInsight(context.Background(), dashboard.Stats{
		TotalAmount:    12000000,
		ApprovedAmount: 9000000,
	})

	assert.Equal(t, "Prioritaskan penyerapan triwulan berjalan.", got)
	assert.Contains(t, prompt, "Rp 12.000.000")
	assert.Contains(t, prompt, "Rp 9.000.000")
}

func TestDashboardInsightFallsBackOnEmptyCompletion(t *testing.T) {
	srv := geminiStub(t, "   ", nil)
	defer srv.Close()

	client := NewClient(srv.URL, "rahasia", nil)
	got := client.DashboardInsight(context.Background(), dashboard.Stats{})
	assert.Equal(t, insightFallback, got)
}
