package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/request"
)

//go:embed templates/*.html
var templates embed.FS

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// statusRank orders the forward chain so the card can stamp every
// stage the request has already cleared. Rejected requests rank as
// draft: no verification box is stamped on a rejected card.
var statusRank = map[request.Status]int{
	request.StatusDraft:           0,
	request.StatusRejected:        0,
	request.StatusPending:         1,
	request.StatusReviewedBidang:  2,
	request.StatusReviewedProgram: 3,
	request.StatusReviewedTU:      4,
	request.StatusApproved:        5,
	request.StatusReviewedPIC:     6,
}

// CardRenderer builds the printable control card for a budget request
// and converts it to PDF through Gotenberg.
type CardRenderer struct {
	client   *Client
	template *template.Template
}

// NewCardRenderer parses the embedded card template against the client.
func NewCardRenderer(client *Client) (*CardRenderer, error) {
	printer := message.NewPrinter(language.Indonesian)
	funcMap := template.FuncMap{
		"rupiah": func(amount float64) string {
			return printer.Sprintf("Rp %v", number.Decimal(amount, number.MaxFractionDigits(0)))
		},
		"tanggal": formatTanggal,
		"tanggalWaktu": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return fmt.Sprintf("%d %s %d %s", t.Day(), monthNames[t.Month()-1], t.Year(), t.Format("15:04"))
		},
		"upper": strings.ToUpper,
		"reached": func(current request.Status, step string) bool {
			return statusRank[current] >= statusRank[request.Status(step)]
		},
	}
	tpl, err := template.New("control_card.html").Funcs(funcMap).ParseFS(templates, "templates/control_card.html")
	if err != nil {
		return nil, fmt.Errorf("parse control card template: %w", err)
	}
	return &CardRenderer{client: client, template: tpl}, nil
}

// RenderCard renders the control card for the given request as PDF bytes.
func (r *CardRenderer) RenderCard(ctx context.Context, req request.Request) ([]byte, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("report: renderer not initialized")
	}
	html, err := r.buildHTML(req)
	if err != nil {
		return nil, fmt.Errorf("render control card: %w", err)
	}
	return r.client.RenderHTML(ctx, html)
}

func (r *CardRenderer) buildHTML(req request.Request) (string, error) {
	var buf bytes.Buffer
	if err := r.template.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatTanggal renders a yyyy-mm-dd date in Indonesian long form,
// falling back to the raw value when the input is not a date.
func formatTanggal(raw string) string {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return raw
	}
	return fmt.Sprintf("%d %s %d", t.Day(), monthNames[t.Month()-1], t.Year())
}

var _ request.CardRenderer = (*CardRenderer)(nil)
