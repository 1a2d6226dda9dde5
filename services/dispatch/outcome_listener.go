package dispatch

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/enum"
	apperrors "github.com/sendgate/sendgate/internal/errors"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/tracing"
)

// OutcomeListener consumes the outcome feed from the dispatch workers and
// finalizes send records to sent/failed, carrying the bounce and complaint
// markers the reputation monitor aggregates later.
type OutcomeListener struct {
	BaseEventListener
	sendRecords interfaces.SendRecordRepository
}

func NewOutcomeListener(log logger.Logger, sendRecords interfaces.SendRecordRepository) interfaces.EventListener {
	return &OutcomeListener{
		BaseEventListener: NewBaseEventListener(log, GetEventType[dto.DispatchOutcome]()),
		sendRecords:       sendRecords,
	}
}

func (l *OutcomeListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "OutcomeListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)

	event, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	outcome, err := DecodeEventData[dto.DispatchOutcome](ctx, event)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	tracing.TagTenant(span, outcome.TenantID)
	tracing.TagEntity(span, outcome.SendRecordID)

	if outcome.Status != enum.SendStatusSent && outcome.Status != enum.SendStatusFailed {
		err := errors.Errorf("unexpected outcome status %q for send record %s", outcome.Status, outcome.SendRecordID)
		tracing.TraceErr(span, err)
		return err
	}

	err = l.sendRecords.MarkOutcome(ctx, outcome.SendRecordID, outcome.Status, outcome.PermanentBounce, outcome.Complaint, outcome.Error)
	if errors.Is(err, apperrors.ErrSendRecordNotFound) {
		// The record was rolled back or already finalized. Requeueing
		// would loop forever, so drop the outcome.
		l.logger.Warnf("dropping outcome for unknown or finalized send record %s", outcome.SendRecordID)
		span.LogKV("event", "outcome dropped")
		return nil
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to mark send outcome")
	}

	l.logger.Infof("send record %s finalized as %s", outcome.SendRecordID, outcome.Status)
	return nil
}
