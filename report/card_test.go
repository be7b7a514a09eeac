package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/request"
)

func sampleRequest() request.Request {
	realized := time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)
	return request.Request{
		ID:                  "7f9c24e8-3b2a-4f09-9d6b-111122223333",
		RequesterName:       "Andi Mappasomba",
		RequesterDepartment: "Bidang Pengendalian Pencemaran",
		Title:               "Pemantauan Kualitas Air Sungai Tallo",
		Category:            "Perjalanan Dinas",
		Location:            "Makassar",
		ExecutionDate:       "2025-05-12",
		ExecutionEndDate:    "2025-05-15",
		ExecutionDuration:   "4 Hari",
		Amount:              7500000,
		Description:         "Pengambilan sampel air pada 5 titik pantau.",
		Status:              request.StatusApproved,
		Items: []request.CalculationItem{
			{
				Title:           "Transport petugas",
				ROCode:          "FBA.962",
				KomponenCode:    "051",
				SubkomponenCode: "A",
				KodeAkun:        "524111",
				VolKeg:          5,
				SatKeg:          "OH",
				HargaSatuan:     1500000,
				Jumlah:          7500000,
			},
		},
		RealizationAmount: 7400000,
		RealizationDate:   &realized,
	}
}

func TestBuildHTMLRendersCardSections(t *testing.T) {
	renderer, err := NewCardRenderer(NewClient("http://gotenberg"))
	require.NoError(t, err)

	html, err := renderer.buildHTML(sampleRequest())
	require.NoError(t, err)

	assert.Contains(t, html, "Kartu Kendali Pengajuan Anggaran")
	assert.Contains(t, html, "Pusat Pengendalian Lingkungan Hidup Sulawesi Maluku")
	assert.Contains(t, html, "7F9C24E8-3B2A-4F09-9D6B-111122223333")
	assert.Contains(t, html, "Pemantauan Kualitas Air Sungai Tallo")
	assert.Contains(t, html, "FBA.962.051.A")
	assert.Contains(t, html, "524111")
	assert.Contains(t, html, "12 Mei 2025")
	assert.Contains(t, html, "S.D 15 Mei 2025")
	assert.Contains(t, html, "10 Juni 2025")
}

func TestBuildHTMLStampsClearedStagesOnly(t *testing.T) {
	renderer, err := NewCardRenderer(NewClient("http://gotenberg"))
	require.NoError(t, err)

	req := sampleRequest()
	req.Status = request.StatusReviewedTU
	req.RealizationDate = nil

	html, err := renderer.buildHTML(req)
	require.NoError(t, err)

	assert.Contains(t, html, "Terverifikasi")
	assert.Contains(t, html, "Belum Disahkan")
	assert.NotContains(t, html, "Disetujui PPK")
	assert.NotContains(t, html, "REALISASI")
}

func TestBuildHTMLRejectedCardHasNoStamps(t *testing.T) {
	renderer, err := NewCardRenderer(NewClient("http://gotenberg"))
	require.NoError(t, err)

	req := sampleRequest()
	req.Status = request.StatusRejected

	html, err := renderer.buildHTML(req)
	require.NoError(t, err)

	assert.NotContains(t, html, "Terverifikasi")
	assert.Contains(t, html, "Belum Diverifikasi")
}

func TestRenderCardPostsHTMLToGotenberg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "8.27", r.FormValue("paperWidth"))

		file, _, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()

		html, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Contains(t, string(html), "Pemantauan Kualitas Air Sungai Tallo")

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("MOCK-PDF-CONTENT"))
	}))
	defer srv.Close()

	renderer, err := NewCardRenderer(NewClient(srv.URL))
	require.NoError(t, err)

	pdf, err := renderer.RenderCard(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "MOCK-PDF-CONTENT", string(pdf))
}

func TestRenderCardSurfacesGotenbergFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "conversion failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	renderer, err := NewCardRenderer(NewClient(srv.URL))
	require.NoError(t, err)

	_, err = renderer.RenderCard(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
