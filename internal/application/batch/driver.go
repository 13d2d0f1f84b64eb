package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/logger"
	"screenplay-wizard/pkg/metrics"
	"screenplay-wizard/pkg/tracer"
)

// Observer 批次生命周期观察者（事件中心适配）
type Observer interface {
	BatchStarted(ctx context.Context, record entity.BatchRecord)
	UnitCompleted(ctx context.Context, p Progress)
	UnitFailed(ctx context.Context, p Progress)
	BatchFinished(ctx context.Context, outcome *Outcome)
}

type nopObserver struct{}

func (nopObserver) BatchStarted(context.Context, entity.BatchRecord) {}
func (nopObserver) UnitCompleted(context.Context, Progress)          {}
func (nopObserver) UnitFailed(context.Context, Progress)             {}
func (nopObserver) BatchFinished(context.Context, *Outcome)          {}

// Driver 批量生成驱动器；同一时间只允许一个批次运行（单元级重新生成同样受限）
type Driver struct {
	mu       sync.Mutex
	current  *Handle
	last     *Handle
	observer Observer
}

// NewDriver 创建驱动器，observer 可为 nil
func NewDriver(observer Observer) *Driver {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Driver{observer: observer}
}

// Handle 运行中批次的句柄
type Handle struct {
	id     string
	job    Job
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	record  entity.BatchRecord
	outcome *Outcome
}

// ID 批次 ID
func (h *Handle) ID() string { return h.id }

// Cancel 取消批次：不再启动新单元，并中止进行中的请求
func (h *Handle) Cancel() { h.cancel() }

// Done 批次结束时关闭
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait 阻塞直到批次结束
func (h *Handle) Wait() *Outcome {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}

// Record 返回批次快照
func (h *Handle) Record() entity.BatchRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := h.record
	rec.Failures = append([]entity.UnitFailure(nil), h.record.Failures...)
	return rec
}

func (h *Handle) update(fn func(rec *entity.BatchRecord)) {
	h.mu.Lock()
	fn(&h.record)
	h.mu.Unlock()
}

// Start 启动批次并立即返回。批次使用从 ctx 派生的独立取消信号。
func (d *Driver) Start(ctx context.Context, job Job) (*Handle, error) {
	if len(job.Units) == 0 {
		return nil, apperrors.ErrNothingToGenerate.WithDetail(job.Label)
	}
	if job.Generate == nil || job.Merge == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("batch job requires generate and merge functions")
	}
	if job.Policy == "" {
		job.Policy = entity.PolicyAbort
	}

	d.mu.Lock()
	if d.current != nil {
		running := d.current.id
		d.mu.Unlock()
		return nil, apperrors.ErrBatchRunning.WithDetail(running)
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(logger.WithContext(ctx, logger.BatchIDKey, id))
	h := &Handle{
		id:     id,
		job:    job,
		cancel: cancel,
		done:   make(chan struct{}),
		record: entity.BatchRecord{
			ID:         id,
			Level:      job.Level,
			Label:      job.Label,
			Policy:     job.Policy,
			Status:     entity.BatchStatusRunning,
			TotalUnits: len(job.Units),
			StartedAt:  time.Now(),
		},
	}
	d.current = h
	d.mu.Unlock()

	metrics.ActiveBatches.Inc()
	d.observer.BatchStarted(runCtx, h.Record())
	logger.Info(runCtx, "batch started",
		"level", string(job.Level),
		"label", job.Label,
		"units", len(job.Units),
		"policy", string(job.Policy),
	)

	go d.run(runCtx, h)
	return h, nil
}

// Run 启动批次并等待结束；ctx 取消会取消批次
func (d *Driver) Run(ctx context.Context, job Job) (*Outcome, error) {
	h, err := d.Start(ctx, job)
	if err != nil {
		return nil, err
	}
	return h.Wait(), nil
}

// Current 返回运行中的批次
func (d *Driver) Current() *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Last 返回最近结束的批次
func (d *Driver) Last() *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Cancel 取消运行中的批次，没有批次时返回 false
func (d *Driver) Cancel() bool {
	h := d.Current()
	if h == nil {
		return false
	}
	h.Cancel()
	return true
}

func (d *Driver) run(ctx context.Context, h *Handle) {
	job := h.job
	start := time.Now()
	ctx, span := tracer.Start(ctx, "batch.Run", trace.WithAttributes(
		attribute.String("batch.id", h.id),
		attribute.String("batch.level", string(job.Level)),
		attribute.Int("batch.units", len(job.Units)),
	))
	defer span.End()

	outcome := &Outcome{
		BatchID: h.id,
		Level:   job.Level,
		Label:   job.Label,
		Total:   len(job.Units),
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				outcome.Status = entity.BatchStatusAborted
				outcome.Err = apperrors.Newf(apperrors.CodeInternalError, "%s panicked: %v", job.Label, r)
				logger.Error(ctx, "batch panicked", outcome.Err)
			}
		}()
		outcome.Status = d.loop(ctx, h, outcome)
	}()

	outcome.Duration = time.Since(start)
	h.cancel()

	tracer.RecordError(span, outcome.Err)
	span.SetAttributes(
		attribute.String("batch.status", string(outcome.Status)),
		attribute.Int("batch.succeeded", outcome.Succeeded),
	)
	metrics.ActiveBatches.Dec()
	metrics.BatchTotal.WithLabelValues(string(job.Level), string(outcome.Status)).Inc()
	metrics.BatchDuration.WithLabelValues(string(job.Level)).Observe(outcome.Duration.Seconds())

	now := time.Now()
	h.update(func(rec *entity.BatchRecord) {
		rec.Status = outcome.Status
		rec.Succeeded = outcome.Succeeded
		rec.CompletedAt = &now
		if outcome.Err != nil {
			rec.Error = outcome.Err.Error()
		}
	})

	finishCtx := context.WithoutCancel(ctx)
	if job.Finish != nil {
		job.Finish(finishCtx, outcome)
	}

	switch outcome.Status {
	case entity.BatchStatusAborted:
		logger.Error(finishCtx, "batch aborted", outcome.Err, "succeeded", outcome.Succeeded, "total", outcome.Total)
	default:
		logger.Info(finishCtx, "batch finished",
			"status", string(outcome.Status),
			"succeeded", outcome.Succeeded,
			"total", outcome.Total,
			"failures", len(outcome.Failures),
		)
	}

	h.mu.Lock()
	h.outcome = outcome
	h.mu.Unlock()

	d.mu.Lock()
	if d.current == h {
		d.current = nil
	}
	d.last = h
	d.mu.Unlock()

	d.observer.BatchFinished(finishCtx, outcome)
	close(h.done)
}

// loop 逐个处理单元；单元 N 只有在单元 N-1 合并（或记录失败）之后才会发起请求
func (d *Driver) loop(ctx context.Context, h *Handle, outcome *Outcome) entity.BatchStatus {
	job := h.job
	total := len(job.Units)

	for i, unit := range job.Units {
		if ctx.Err() != nil {
			return entity.BatchStatusCancelled
		}

		result, err := job.Generate(ctx, unit)
		// 请求返回后才发现已取消：丢弃结果，保持状态树停留在上一个已合并单元
		if ctx.Err() != nil {
			return entity.BatchStatusCancelled
		}
		var preview string
		if err == nil {
			preview, err = job.Merge(unit, result)
		}

		progress := Progress{
			BatchID:       h.id,
			Level:         job.Level,
			UnitOrdinal:   i + 1,
			TotalUnits:    total,
			HierarchyPath: unit.Path,
			Title:         unit.Title,
		}
		h.update(func(rec *entity.BatchRecord) { rec.Processed = i + 1 })

		if err != nil {
			if errors.Is(err, context.Canceled) {
				return entity.BatchStatusCancelled
			}
			msg := errorMessage(err)
			progress.Error = msg
			failure := entity.UnitFailure{Ordinal: i + 1, Title: unit.Title, Path: unit.Path, Error: msg}
			outcome.Failures = append(outcome.Failures, failure)
			h.update(func(rec *entity.BatchRecord) { rec.Failures = append(rec.Failures, failure) })
			metrics.BatchUnitTotal.WithLabelValues(string(job.Level), "failed").Inc()
			d.observer.UnitFailed(ctx, progress)

			if job.Policy == entity.PolicyAbort {
				outcome.Err = apperrors.Wrap(err, apperrors.CodeGenerationFailed,
					fmt.Sprintf("failed to generate %s for %q: %s", levelNoun(job.Level), unit.Title, msg))
				return entity.BatchStatusAborted
			}
			logger.Warn(ctx, "batch unit failed, continuing",
				"unit", i+1,
				"title", unit.Title,
				"error", msg,
			)
			continue
		}

		outcome.Succeeded++
		h.update(func(rec *entity.BatchRecord) { rec.Succeeded = outcome.Succeeded })
		metrics.BatchUnitTotal.WithLabelValues(string(job.Level), "succeeded").Inc()
		progress.Preview = truncatePreview(preview)
		d.observer.UnitCompleted(ctx, progress)
	}
	return entity.BatchStatusCompleted
}

// errorMessage 优先使用服务端返回的消息
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Detail != "" && appErr.Code != apperrors.CodeGenerationFailed {
			return appErr.Message + ": " + appErr.Detail
		}
		return appErr.Message
	}
	return err.Error()
}
