package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
	applogger "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
	pkgqueue "github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/queue"
)

const exportJobType = "admissions.export"

// ExportPayload describes one requested export run.
type ExportPayload struct {
	Prefix      string    `json:"prefix,omitempty"`
	Horizon     int       `json:"horizon,omitempty"`
	Percentile  float64   `json:"percentile,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// ExportResult reports what a submit did: queued for the worker, or the
// files an inline run produced.
type ExportResult struct {
	Queued bool     `json:"queued"`
	Files  []string `json:"files,omitempty"`
}

// ExportWorker renders full analysis runs to disk: a machine-readable JSON
// dump plus a short text summary for people who read exports, not APIs.
// With a queue configured the runs happen on queue workers; without one
// Submit runs them inline.
type ExportWorker struct {
	analyzer *AdmissionAnalyzer
	queue    *pkgqueue.RedisQueue
	dir      string
	l        *applogger.Logger
}

func NewExportWorker(analyzer *AdmissionAnalyzer, dir string) *ExportWorker {
	if dir == "" {
		dir = "exports"
	}
	return &ExportWorker{analyzer: analyzer, dir: dir}
}

// SetQueue injects the redis-backed job queue.
func (w *ExportWorker) SetQueue(q *pkgqueue.RedisQueue) { w.queue = q }

// SetLogger injects a structured logger.
func (w *ExportWorker) SetLogger(l *applogger.Logger) { w.l = l }

// Start registers the export job and launches the queue workers. Without a
// queue there is nothing to start; exports then run inside Submit.
func (w *ExportWorker) Start(ctx context.Context) error {
	if w.queue == nil {
		return nil
	}
	w.queue.RegisterJob(&exportJob{worker: w})
	return w.queue.Start()
}

// Stop drains the queue workers.
func (w *ExportWorker) Stop(ctx context.Context) error {
	if w.queue == nil {
		return nil
	}
	return w.queue.Stop(ctx)
}

// Submit queues an export run. When the queue is missing or refuses the
// message the run happens inline and the produced files are returned.
func (w *ExportWorker) Submit(ctx context.Context, p ExportPayload) (*ExportResult, error) {
	if p.RequestedAt.IsZero() {
		p.RequestedAt = time.Now().UTC()
	}
	if w.queue != nil {
		err := w.queue.Enqueue(ctx, exportJobType, p)
		if err == nil {
			return &ExportResult{Queued: true}, nil
		}
		if w.l != nil {
			w.l.Warn("export enqueue failed, running inline", applogger.Error(err))
		}
	}
	files, err := w.Run(ctx, p)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Files: files}, nil
}

// Run produces the analysis files and returns their paths.
func (w *ExportWorker) Run(ctx context.Context, p ExportPayload) ([]string, error) {
	res, err := w.analyzer.FullAnalysis(ctx, AnalysisParams{
		Horizon:    p.Horizon,
		Percentile: p.Percentile,
		From:       p.From,
		To:         p.To,
	})
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}

	prefix := p.Prefix
	if prefix == "" {
		prefix = "analysis"
	}
	stamp := time.Now().UTC().Format("20060102_150405")

	resultsPath := filepath.Join(w.dir, fmt.Sprintf("%s_results_%s.json", prefix, stamp))
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(resultsPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}

	summaryPath := filepath.Join(w.dir, fmt.Sprintf("%s_summary_%s.txt", prefix, stamp))
	if err := os.WriteFile(summaryPath, []byte(renderTextSummary(res)), 0o644); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	if w.l != nil {
		w.l.Info("analysis exported",
			applogger.String("results", resultsPath),
			applogger.String("summary", summaryPath),
		)
	}
	return []string{resultsPath, summaryPath}, nil
}

// exportJob adapts the worker to the queue job interface.
type exportJob struct {
	worker *ExportWorker
}

func (j *exportJob) Name() string { return "admission analysis export" }

func (j *exportJob) Type() string { return exportJobType }

func (j *exportJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := pkgqueue.ParsePayload[ExportPayload](payload)
	if err != nil {
		return err
	}
	_, err = j.worker.Run(ctx, *p)
	return err
}

var _ pkgqueue.Job = (*exportJob)(nil)

// renderTextSummary formats the run for the exports directory. Sections
// degrade with the analysis itself: a run without a forecast simply has no
// prediction lines.
func renderTextSummary(res *models.AdmissionsAnalysis) string {
	var b strings.Builder
	b.WriteString("HOSPITAL ADMISSIONS - SUMMARY REPORT\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Report Generated: %s\n\n", res.GeneratedAt.Format("2006-01-02 15:04:05"))

	if s := res.Summary; s != nil {
		b.WriteString("DATA SUMMARY\n")
		b.WriteString(strings.Repeat("-", 20) + "\n")
		fmt.Fprintf(&b, "Total Admissions: %d\n", s.TotalAdmissions)
		fmt.Fprintf(&b, "Date Range: %s to %s\n", s.DateRange.Start, s.DateRange.End)
		fmt.Fprintf(&b, "Average Patient Age: %.1f years\n", s.AverageAge)
		fmt.Fprintf(&b, "Average Length of Stay: %.1f days\n", s.AverageLengthOfStay)
		b.WriteString("\n")

		b.WriteString("KEY FINDINGS\n")
		b.WriteString(strings.Repeat("-", 20) + "\n")
		if group, n := mostCommon(s.AgeDistribution); n > 0 {
			fmt.Fprintf(&b, "Most Common Age Group: %s\n", group)
		}
		if name, n := topRiskFactor(s.RiskFactorPrevalence); n > 0 {
			fmt.Fprintf(&b, "Most Common Condition: %s\n", name)
		}
		b.WriteString("\n")
	}

	b.WriteString("PREDICTIONS SUMMARY\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	if bp := res.BusyPeriods; bp != nil {
		fmt.Fprintf(&b, "Busy Day Threshold: %.1f admissions\n", bp.BusyThreshold)
		fmt.Fprintf(&b, "Historical Busy Days: %d\n", bp.BusyDayCount)
		if bp.PredictedBusyDays != nil {
			fmt.Fprintf(&b, "Predicted Future Busy Days: %d\n", *bp.PredictedBusyDays)
		}
	}
	if c := res.Capacity; c != nil {
		fmt.Fprintf(&b, "Maximum Daily Capacity Needed: %d\n", c.PeakRequirements.MaxDailyAdmissions)
		fmt.Fprintf(&b, "95th Percentile Capacity: %d\n", c.PeakRequirements.Percentile95)
	}
	if f := res.Forecast; f != nil {
		fmt.Fprintf(&b, "Selected Model: %s (%d-day horizon)\n", f.BestModel, f.HorizonDays)
	}
	return b.String()
}

// mostCommon picks the largest bucket; ties break alphabetically so the
// report is stable run to run.
func mostCommon(m map[string]int) (string, int) {
	best, n := "", 0
	for k, v := range m {
		if v > n || (v == n && n > 0 && k < best) {
			best, n = k, v
		}
	}
	return best, n
}

func topRiskFactor(m map[string]models.RiskPrevalence) (string, int) {
	best, n := "", 0
	for k, v := range m {
		if v.Count > n || (v.Count == n && n > 0 && k < best) {
			best, n = k, v.Count
		}
	}
	return best, n
}
