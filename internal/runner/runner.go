package runner

import (
	"context"
	"fmt"
	"io"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"

	"api_smoke_testing/internal/model"
)

// CaseEvaluator evaluates a single case. *Evaluator implements it.
type CaseEvaluator interface {
	Evaluate(ctx context.Context, c model.Case) model.ResultRecord
}

// Sink receives the finished result list. It matches reporter.Sink.
type Sink interface {
	Write(results []model.ResultRecord) error
}

// Summary counts outcomes of a run.
type Summary struct {
	Total  int
	Passed int
	Failed int
}

// Summarize tallies results.
func Summarize(results []model.ResultRecord) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	return s
}

// Runner drives cases one at a time, in order, printing a progress line per case.
type Runner struct {
	evaluator CaseEvaluator
	sink      Sink
	out       io.Writer
	logger    glog.Logger
}

func New(evaluator CaseEvaluator, sink Sink, out io.Writer, logger glog.Logger) *Runner {
	return &Runner{evaluator: evaluator, sink: sink, out: out, logger: logger}
}

// Run evaluates every case, hands the results to the sink and prints the summary.
// A failing case never stops the run; a failing sink is returned as an error.
func (r *Runner) Run(ctx context.Context, cases []model.Case) ([]model.ResultRecord, error) {
	r.logger.Info("starting API smoke run", zap.Int("case_count", len(cases)))
	fmt.Fprintln(r.out, "=== API test run started ===")

	results := make([]model.ResultRecord, 0, len(cases))
	for _, c := range cases {
		rec := r.evaluator.Evaluate(ctx, c)
		results = append(results, rec)
		r.printProgress(rec)

		if !rec.Passed {
			r.logger.Debug("case failed",
				zap.String("case", rec.CaseName),
				zap.String("kind", string(rec.Failure)),
				zap.String("error", rec.Error),
			)
		}
	}

	if r.sink != nil {
		if err := r.sink.Write(results); err != nil {
			return results, errors.Wrap(err, "write report")
		}
	}

	summary := Summarize(results)
	fmt.Fprintln(r.out, "=== API test run finished ===")
	fmt.Fprintf(r.out, "passed %d/%d\n", summary.Passed, summary.Total)
	r.logger.Info("API smoke run finished",
		zap.Int("total", summary.Total),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
	)
	return results, nil
}

func (r *Runner) printProgress(rec model.ResultRecord) {
	tag := "PASS"
	if !rec.Passed {
		tag = "FAIL"
	}
	line := fmt.Sprintf("[%s] %s %s %s → %s (%.1f ms)",
		tag, rec.CaseName, rec.Method, rec.URL, rec.StatusText(), rec.LatencyMs)
	if !rec.Passed {
		line += "  |  " + rec.Error
	}
	fmt.Fprintln(r.out, line)
}
