package dashboard

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/request"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// RequestSource feeds request rows into the aggregator.
type RequestSource interface {
	ListStatRows(ctx context.Context) ([]StatRow, error)
}

// CeilingSource feeds ceiling rows for a fiscal year.
type CeilingSource interface {
	ListCeilingRows(ctx context.Context, year int) ([]CeilingRow, error)
}

// InsightSource produces the dashboard commentary. Implementations must
// degrade to a fallback string on failure rather than return an error.
type InsightSource interface {
	DashboardInsight(ctx context.Context, stats Stats) string
}

// Service computes dashboard aggregates over requests and ceilings.
type Service struct {
	requests RequestSource
	ceilings CeilingSource
	insight  InsightSource
	cache    *Cache
}

// NewService wires the aggregation sources with the cache layer.
func NewService(requests RequestSource, ceilings CeilingSource, insight InsightSource, cache *Cache) *Service {
	return &Service{requests: requests, ceilings: ceilings, insight: insight, cache: cache}
}

// Stats returns the caller-scoped dashboard payload for the year,
// served from cache when fresh.
func (s *Service) Stats(ctx context.Context, actor *shared.Actor, year int) (Stats, error) {
	if year <= 0 {
		year = time.Now().Year()
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "stats", scopeToken(actor), strconv.Itoa(year))
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	err = s.cache.FetchJSON(ctx, key, &stats, func(ctx context.Context) (interface{}, error) {
		return s.compute(ctx, actor, year)
	})
	return stats, err
}

// Insight returns the AI commentary for the caller's dashboard.
func (s *Service) Insight(ctx context.Context, actor *shared.Actor, year int) (string, error) {
	stats, err := s.Stats(ctx, actor, year)
	if err != nil {
		return "", err
	}
	if s.insight == nil {
		return "", nil
	}
	return s.insight.DashboardInsight(ctx, stats), nil
}

// Warm precomputes the office-wide payload so the first viewer of the
// day does not pay for the aggregation. Used by the background worker.
func (s *Service) Warm(ctx context.Context, year int) error {
	global := &shared.Actor{Role: shared.RoleAdmin}
	_, err := s.Stats(ctx, global, year)
	return err
}

// Invalidate bumps the cache version after bulk data changes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

type deptEntry struct {
	ceiling  float64
	proposed float64
	realized float64
	fund     map[string]*fundEntry
	queue    map[string]int
}

type fundEntry struct {
	ceiling  float64
	proposed float64
}

func newDeptEntry() *deptEntry {
	e := &deptEntry{
		fund: make(map[string]*fundEntry, len(FundPrefixes)),
		queue: map[string]int{
			string(request.StatusPending):         0,
			string(request.StatusReviewedBidang):  0,
			string(request.StatusReviewedProgram): 0,
			string(request.StatusReviewedTU):      0,
			string(request.StatusApproved):        0,
			string(request.StatusReviewedPIC):     0,
			"realized":                            0,
		},
	}
	for _, prefix := range FundPrefixes {
		e.fund[prefix] = &fundEntry{}
	}
	return e
}

func (s *Service) compute(ctx context.Context, actor *shared.Actor, year int) (Stats, error) {
	var (
		rows     []StatRow
		ceilings []CeilingRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.requests.ListStatRows(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ceilings, err = s.ceilings.ListCeilingRows(gctx, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return aggregate(actor, rows, ceilings), nil
}

// aggregate reproduces the dashboard figures: authorized-only totals,
// rollups over fuzzily matched departments, fund-prefix breakdowns,
// fixed Jan-Dec trend buckets, and queue counts where a recorded
// realization takes precedence over the raw status bucket. The office
// ceiling total alone is computed over every row regardless of scope.
func aggregate(actor *shared.Actor, rows []StatRow, ceilings []CeilingRow) Stats {
	stats := Stats{MonthlyTrend: make([]TrendPoint, len(monthLabels))}
	for i, label := range monthLabels {
		stats.MonthlyTrend[i] = TrendPoint{Name: label}
	}

	entries := make(map[string]*deptEntry)
	var entryOrder []string

	for _, c := range ceilings {
		dept := strings.TrimSpace(c.Department)
		stats.TotalOfficeCeiling += c.Amount
		if !actor.AuthorizedForDepartment(dept) {
			continue
		}
		entry, ok := entries[dept]
		if !ok {
			entry = newDeptEntry()
			entries[dept] = entry
			entryOrder = append(entryOrder, dept)
		}
		entry.ceiling += c.Amount
		for _, prefix := range FundPrefixes {
			if strings.HasPrefix(c.ROCode, prefix) {
				entry.fund[prefix].ceiling += c.Amount
			}
		}
	}

	categoryTotals := make(map[string]float64)
	var categoryOrder []string

	for _, row := range rows {
		dept := strings.TrimSpace(row.Department)
		if dept == "" {
			dept = "LAINNYA"
		}
		matchedKey := ""
		for _, key := range entryOrder {
			if shared.DepartmentMatches(dept, key) {
				matchedKey = key
				break
			}
		}

		if actor.AuthorizedForDepartment(dept) {
			stats.TotalAmount += row.Amount
			stats.TotalCount++
			switch row.Status {
			case string(request.StatusApproved), string(request.StatusRejected), string(request.StatusReviewedPIC):
			default:
				stats.PendingCount++
			}
			if row.Status == string(request.StatusApproved) || row.Status == string(request.StatusReviewedPIC) || row.Realized() {
				stats.ApprovedAmount += row.Amount
			}
			if row.Status == string(request.StatusRejected) {
				stats.RejectedCount++
			}
			if row.Category != "" {
				if _, seen := categoryTotals[row.Category]; !seen {
					categoryOrder = append(categoryOrder, row.Category)
				}
				categoryTotals[row.Category] += row.Amount
			}
			if !row.CreatedAt.IsZero() {
				stats.MonthlyTrend[int(row.CreatedAt.Month())-1].Amount += row.Amount
			}
			if row.Realized() {
				// Realization is assumed paid in full for the trend.
				stats.MonthlyTrend[int(row.RealizationDate.Month())-1].Realized += row.Amount
			}
		}

		if matchedKey == "" {
			continue
		}
		entry := entries[matchedKey]
		if row.Realized() {
			entry.queue["realized"]++
		} else if _, ok := entry.queue[row.Status]; ok {
			entry.queue[row.Status]++
		}
		if row.Status != string(request.StatusRejected) {
			entry.proposed += row.Amount
			for _, item := range row.Items {
				ro := strings.ToUpper(item.ROCode)
				for _, prefix := range FundPrefixes {
					if strings.HasPrefix(ro, prefix) {
						entry.fund[prefix].proposed += item.Jumlah
					}
				}
			}
		}
		entry.realized += row.RealizationAmount
	}

	stats.Categories = make([]NameValue, 0, len(categoryOrder))
	for _, name := range categoryOrder {
		stats.Categories = append(stats.Categories, NameValue{Name: name, Value: categoryTotals[name]})
	}

	stats.DeptBudgets = make([]DeptBudget, 0, len(entryOrder))
	stats.Departments = make([]DeptSummary, 0, len(entryOrder))
	for _, name := range entryOrder {
		entry := entries[name]
		stats.DeptBudgets = append(stats.DeptBudgets, DeptBudget{
			Name:      name,
			IsTU:      strings.Contains(strings.ToLower(name), "tata usaha"),
			Total:     entry.ceiling,
			Spent:     entry.proposed,
			Remaining: clampZero(entry.ceiling - entry.proposed),
			Queue:     entry.queue,
			FBA:       entry.fundBucket("FBA"),
			BDH:       entry.fundBucket("BDH"),
			EBA:       entry.fundBucket("EBA"),
			EBB:       entry.fundBucket("EBB"),
			BDB:       entry.fundBucket("BDB"),
			EBD:       entry.fundBucket("EBD"),
		})
		stats.Departments = append(stats.Departments, DeptSummary{
			Name:     name,
			Proposed: entry.proposed,
			Realized: entry.realized,
			Value:    entry.proposed,
		})
	}
	sort.SliceStable(stats.DeptBudgets, func(i, j int) bool {
		return stats.DeptBudgets[i].Total > stats.DeptBudgets[j].Total
	})

	return stats
}

func (e *deptEntry) fundBucket(prefix string) FundBucket {
	f := e.fund[prefix]
	return FundBucket{Total: f.ceiling, Spent: f.proposed, Remaining: clampZero(f.ceiling - f.proposed)}
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func scopeToken(actor *shared.Actor) string {
	if actor.IsGlobalViewer() {
		return "global"
	}
	depts := actor.Departments()
	lowered := make([]string, 0, len(depts))
	for _, d := range depts {
		lowered = append(lowered, strings.ToLower(strings.ReplaceAll(d, ":", "_")))
	}
	sort.Strings(lowered)
	if len(lowered) == 0 {
		return "none"
	}
	return strings.Join(lowered, "|")
}
