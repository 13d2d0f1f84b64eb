package wizard

import (
	"context"

	"screenplay-wizard/internal/application/batch"
	"screenplay-wizard/internal/application/events"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/pkg/logger"
)

// batchEvents 把批次生命周期转成推送事件
type batchEvents struct {
	hub *events.Hub
}

// finishedData batch_finished 事件负载
type finishedData struct {
	*batch.Outcome
	Summary string `json:"summary"`
}

func projectPathFrom(ctx context.Context) string {
	if v, ok := ctx.Value(logger.ProjectPathKey).(string); ok {
		return v
	}
	return ""
}

func (o *batchEvents) BatchStarted(ctx context.Context, record entity.BatchRecord) {
	o.hub.Publish(events.Event{
		Type:        events.TypeBatchStarted,
		ProjectPath: projectPathFrom(ctx),
		BatchID:     record.ID,
		Data:        record,
	})
}

func (o *batchEvents) UnitCompleted(ctx context.Context, p batch.Progress) {
	o.hub.Publish(events.Event{
		Type:        events.TypeUnitCompleted,
		ProjectPath: projectPathFrom(ctx),
		BatchID:     p.BatchID,
		Data:        p,
	})
}

func (o *batchEvents) UnitFailed(ctx context.Context, p batch.Progress) {
	o.hub.Publish(events.Event{
		Type:        events.TypeUnitFailed,
		ProjectPath: projectPathFrom(ctx),
		BatchID:     p.BatchID,
		Data:        p,
	})
}

func (o *batchEvents) BatchFinished(ctx context.Context, outcome *batch.Outcome) {
	o.hub.Publish(events.Event{
		Type:        events.TypeBatchFinished,
		ProjectPath: projectPathFrom(ctx),
		BatchID:     outcome.BatchID,
		Data:        finishedData{Outcome: outcome, Summary: outcome.Summary()},
	})
}
