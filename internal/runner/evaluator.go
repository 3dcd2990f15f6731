package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"

	"api_smoke_testing/internal/model"
	"api_smoke_testing/internal/schema"
	"api_smoke_testing/internal/transport"
)

const maxLoggedBodyBytes = 512

// Sender issues one HTTP request. *transport.Client implements it.
type Sender interface {
	Send(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Evaluator turns a case into a result record. Checks short-circuit, so a record
// carries exactly one failure reason: the first one hit.
type Evaluator struct {
	sender    Sender
	validator *schema.Validator
	logger    glog.Logger
}

// NewEvaluator builds an Evaluator. A nil validator gets a fresh one.
func NewEvaluator(sender Sender, validator *schema.Validator, logger glog.Logger) *Evaluator {
	if validator == nil {
		validator = schema.NewValidator()
	}
	return &Evaluator{sender: sender, validator: validator, logger: logger}
}

// Evaluate runs c and never fails: every problem ends up in the returned record.
func (e *Evaluator) Evaluate(ctx context.Context, c model.Case) model.ResultRecord {
	def := c.Definition.Resolved()
	rec := model.ResultRecord{
		CaseName:       c.Name,
		Method:         def.Method,
		URL:            def.URL,
		ExpectedStatus: def.ExpectedStatus,
	}

	req := transport.Request{
		Method:  def.Method,
		URL:     def.URL,
		Headers: def.Headers,
		Params:  def.Params,
		Timeout: time.Duration(def.TimeoutSeconds) * time.Second,
	}
	if def.HasBody() {
		req.Body = def.Body
	}
	if e.logger.Level() == glog.LevelDebug {
		e.logger.Debug("send request", zap.String("case", c.Name), zap.String("curl", req.Redacted().Curl()))
	}

	resp, err := e.sender.Send(ctx, req)
	if err != nil {
		kind, elapsed, cause := describeTransportError(err)
		rec.LatencyMs = milliseconds(elapsed)
		return fail(rec, model.FailureException, fmt.Sprintf("exception: %s: %s", kind, cause))
	}

	status := resp.StatusCode
	rec.ActualStatus = &status
	rec.LatencyMs = milliseconds(resp.Elapsed)
	e.logger.Debug("received response",
		zap.String("case", c.Name),
		zap.Int("status", status),
		zap.Duration("elapsed", resp.Elapsed),
		zap.String("body", truncate(string(resp.Body), maxLoggedBodyBytes)),
	)

	if status != def.ExpectedStatus {
		return fail(rec, model.FailureStatusMismatch, fmt.Sprintf("status_mismatch: got %d", status))
	}

	if !def.HasSchema() {
		rec.Passed = true
		return rec
	}

	document, err := resp.JSON()
	if err != nil {
		return fail(rec, model.FailureNonJSONResponse, "non_json_response")
	}

	if err := e.validator.Validate(def.Schema, document); err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			return fail(rec, model.FailureSchemaError, "schema_error: "+ve.Message)
		}
		return fail(rec, model.FailureSchemaError, "schema_error: "+err.Error())
	}

	rec.Passed = true
	return rec
}

func fail(rec model.ResultRecord, kind model.FailureKind, msg string) model.ResultRecord {
	rec.Passed = false
	rec.Failure = kind
	rec.Error = msg
	return rec
}

func describeTransportError(err error) (transport.Kind, time.Duration, string) {
	if te, ok := transport.AsTransportError(err); ok {
		return te.Kind, te.Elapsed, te.Err.Error()
	}
	return transport.KindRequest, 0, err.Error()
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

var _ CaseEvaluator = (*Evaluator)(nil)
var _ Sender = (*transport.Client)(nil)
