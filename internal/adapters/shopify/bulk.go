package shopify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shopify-price-manager/internal/adapters/shopify/dto"
	"shopify-price-manager/internal/config"
	"shopify-price-manager/internal/logging"
)

const tracerName = "shopify-price-manager/adapters/shopify"

// Executor is the part of Client the bulk runner and the variant updater need.
type Executor interface {
	Execute(ctx context.Context, query string, variables map[string]any, out any) error
}

type BulkStatus string

const (
	BulkStatusCreated   BulkStatus = "CREATED"
	BulkStatusRunning   BulkStatus = "RUNNING"
	BulkStatusCompleted BulkStatus = "COMPLETED"
	BulkStatusFailed    BulkStatus = "FAILED"
	BulkStatusCanceled  BulkStatus = "CANCELED"
	BulkStatusUnknown   BulkStatus = "UNKNOWN"
)

func (s BulkStatus) Terminal() bool {
	switch s {
	case BulkStatusCompleted, BulkStatusFailed, BulkStatusCanceled:
		return true
	}
	return false
}

// BulkJob is the last observed state of a bulk operation.
type BulkJob struct {
	ID          string
	Status      BulkStatus
	ErrorCode   string
	ObjectCount int64
	FileSize    int64
	URL         string
	PartialURL  string
}

// BulkResult is a completed job. An empty URL means the query matched nothing.
type BulkResult struct {
	OperationID string
	ObjectCount int64
	FileSize    int64
	URL         string
	PartialURL  string
}

func (r BulkResult) Empty() bool {
	return strings.TrimSpace(r.URL) == ""
}

type SubmissionError struct {
	Message string
}

func (e *SubmissionError) Error() string {
	return "shopify bulk operation submission failed: " + e.Message
}

type OperationFailedError struct {
	OperationID string
	ErrorCode   string
	PartialURL  string
}

func (e *OperationFailedError) Error() string {
	msg := fmt.Sprintf("shopify bulk operation %s failed with error: %s", e.OperationID, e.ErrorCode)
	if e.PartialURL != "" {
		msg += ". Partial data may be available at: " + e.PartialURL
	}
	return msg
}

var ErrOperationCanceled = errors.New("shopify bulk operation was canceled")

type OperationTimeoutError struct {
	OperationID string
	Limit       time.Duration
}

func (e *OperationTimeoutError) Error() string {
	return fmt.Sprintf("shopify bulk operation %s did not complete within %s", e.OperationID, e.Limit)
}

type UnexpectedStatusError struct {
	OperationID string
	Status      BulkStatus
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("shopify bulk operation %s returned unexpected status: %s", e.OperationID, e.Status)
}

// nextPollStep is the transition function of the poll loop: it reports
// whether polling is over and, if so, how it ended.
func nextPollStep(job BulkJob) (done bool, err error) {
	switch job.Status {
	case BulkStatusCompleted:
		return true, nil
	case BulkStatusFailed:
		code := job.ErrorCode
		if code == "" {
			code = string(BulkStatusUnknown)
		}
		return true, &OperationFailedError{OperationID: job.ID, ErrorCode: code, PartialURL: job.PartialURL}
	case BulkStatusCanceled:
		return true, ErrOperationCanceled
	case BulkStatusCreated, BulkStatusRunning:
		return false, nil
	default:
		return true, &UnexpectedStatusError{OperationID: job.ID, Status: job.Status}
	}
}

// BulkPollConfig is the backoff schedule of the poll loop.
type BulkPollConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Timeout    time.Duration
}

func PollConfigFrom(cfg config.ShopifyConfig) BulkPollConfig {
	return BulkPollConfig{
		Initial:    cfg.BulkPollInitial,
		Max:        cfg.BulkPollMax,
		Multiplier: cfg.BulkPollMultiplier,
		Timeout:    cfg.BulkTimeout,
	}
}

func (p BulkPollConfig) nextInterval(current time.Duration) time.Duration {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	next := time.Duration(float64(current) * multiplier)
	if p.Max > 0 && next > p.Max {
		next = p.Max
	}
	return next
}

// BulkRunner submits bulk queries and drives them to a terminal state.
type BulkRunner struct {
	exec   Executor
	poll   BulkPollConfig
	logger logging.LoggerService

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewBulkRunner(exec Executor, poll BulkPollConfig, logger logging.LoggerService) *BulkRunner {
	return &BulkRunner{
		exec:   exec,
		poll:   poll,
		logger: logging.OrNop(logger),
		now:    time.Now,
		sleep:  sleepWithContext,
	}
}

const currentBulkOperationQuery = `
query {
	currentBulkOperation {
		id
		status
		errorCode
		objectCount
		fileSize
		url
		partialDataUrl
	}
}`

// Run submits a bulkOperationRunQuery mutation and waits for it to finish.
func (r *BulkRunner) Run(ctx context.Context, mutation string) (BulkResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "BulkRunner.Run")
	defer span.End()

	result, err := r.run(ctx, mutation, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (r *BulkRunner) run(ctx context.Context, mutation string, span trace.Span) (BulkResult, error) {
	operationID, err := r.submit(ctx, mutation)
	if err != nil {
		return BulkResult{}, err
	}
	span.SetAttributes(attribute.String("bulk.operation_id", operationID))
	r.logger.Log("bulk operation started", zap.String("operation_id", operationID))

	job, err := r.waitForCompletion(ctx, operationID)
	if err != nil {
		return BulkResult{}, err
	}
	span.SetAttributes(
		attribute.Int64("bulk.object_count", job.ObjectCount),
		attribute.Int64("bulk.file_size", job.FileSize),
	)
	r.logger.Log("bulk operation completed",
		zap.String("operation_id", operationID),
		zap.Int64("object_count", job.ObjectCount),
		zap.Int64("file_size", job.FileSize),
	)
	return BulkResult{
		OperationID: operationID,
		ObjectCount: job.ObjectCount,
		FileSize:    job.FileSize,
		URL:         job.URL,
		PartialURL:  job.PartialURL,
	}, nil
}

func (r *BulkRunner) submit(ctx context.Context, mutation string) (string, error) {
	var data dto.BulkOperationRunQueryData
	if err := r.exec.Execute(ctx, mutation, nil, &data); err != nil {
		return "", fmt.Errorf("submit bulk operation: %w", err)
	}
	payload := data.BulkOperationRunQuery
	if err := userErrorsToError("bulkOperationRunQuery", payload.UserErrors); err != nil {
		var userErrs *UserErrorsError
		errors.As(err, &userErrs)
		return "", &SubmissionError{Message: userErrs.Messages()}
	}
	if payload.BulkOperation == nil || strings.TrimSpace(payload.BulkOperation.ID) == "" {
		return "", &SubmissionError{Message: "no operation id returned"}
	}
	return payload.BulkOperation.ID, nil
}

// waitForCompletion polls immediately, then sleeps on a growing interval
// between polls until the job reaches a terminal status or the wall clock
// ceiling is crossed.
func (r *BulkRunner) waitForCompletion(ctx context.Context, operationID string) (BulkJob, error) {
	started := r.now()
	interval := r.poll.Initial

	for {
		job, err := r.fetchCurrent(ctx)
		if err != nil {
			return BulkJob{}, err
		}
		if job.ID != "" && job.ID != operationID {
			r.logger.LogWarning("current bulk operation differs from submitted one",
				zap.String("submitted", operationID),
				zap.String("current", job.ID),
			)
		}
		if job.ID == "" {
			job.ID = operationID
		}
		r.logger.Log("bulk operation polled",
			zap.String("operation_id", operationID),
			zap.String("status", string(job.Status)),
			zap.Int64("object_count", job.ObjectCount),
		)

		done, err := nextPollStep(job)
		if done {
			return job, err
		}

		if r.expired(started) {
			return BulkJob{}, &OperationTimeoutError{OperationID: operationID, Limit: r.poll.Timeout}
		}
		if err := r.sleep(ctx, interval); err != nil {
			return BulkJob{}, err
		}
		// no poll goes out past the ceiling
		if r.expired(started) {
			return BulkJob{}, &OperationTimeoutError{OperationID: operationID, Limit: r.poll.Timeout}
		}
		interval = r.poll.nextInterval(interval)
	}
}

func (r *BulkRunner) expired(started time.Time) bool {
	return r.poll.Timeout > 0 && r.now().Sub(started) >= r.poll.Timeout
}

func (r *BulkRunner) fetchCurrent(ctx context.Context) (BulkJob, error) {
	var data dto.CurrentBulkOperationData
	if err := r.exec.Execute(ctx, currentBulkOperationQuery, nil, &data); err != nil {
		return BulkJob{}, fmt.Errorf("poll bulk operation: %w", err)
	}
	node := data.CurrentBulkOperation
	if node == nil {
		return BulkJob{Status: BulkStatusUnknown}, nil
	}
	status := BulkStatus(strings.ToUpper(strings.TrimSpace(node.Status)))
	if status == "" {
		status = BulkStatusUnknown
	}
	return BulkJob{
		ID:          node.ID,
		Status:      status,
		ErrorCode:   deref(node.ErrorCode),
		ObjectCount: int64(node.ObjectCount),
		FileSize:    int64(node.FileSize),
		URL:         deref(node.URL),
		PartialURL:  deref(node.PartialDataURL),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
