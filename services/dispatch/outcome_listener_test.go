package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/enum"
	apperrors "github.com/sendgate/sendgate/internal/errors"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/utils"
)

type markedOutcome struct {
	id              string
	status          enum.SendStatus
	permanentBounce bool
	complaint       bool
	lastError       string
}

type fakeSendRecords struct {
	interfaces.SendRecordRepository
	marked  []markedOutcome
	markErr error
}

func (f *fakeSendRecords) MarkOutcome(ctx context.Context, id string, status enum.SendStatus, permanentBounce, complaint bool, lastError string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, markedOutcome{id, status, permanentBounce, complaint, lastError})
	return nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func tenantCtx(tenant string) context.Context {
	return utils.WithCustomContext(context.Background(), &utils.CustomContext{Tenant: tenant})
}

// outcomeEvent mimics what the subscriber hands a listener after JSON
// decoding: event data arrives as a generic map, not a typed struct.
func outcomeEvent(outcome dto.DispatchOutcome) dto.Event {
	data := map[string]interface{}{
		"sendRecordId": outcome.SendRecordID,
		"tenantId":     outcome.TenantID,
		"status":       outcome.Status.String(),
	}
	if outcome.PermanentBounce {
		data["permanentBounce"] = true
	}
	if outcome.Complaint {
		data["complaint"] = true
	}
	if outcome.Error != "" {
		data["error"] = outcome.Error
	}
	return dto.Event{
		Event: dto.EventDetails{
			Id:         "event_1",
			Tenant:     outcome.TenantID,
			EntityId:   outcome.SendRecordID,
			EntityType: enum.SEND,
			EventType:  GetEventType[dto.DispatchOutcome](),
			Data:       data,
		},
	}
}

func TestOutcomeListener_MarksSent(t *testing.T) {
	sendRecords := &fakeSendRecords{}
	listener := NewOutcomeListener(getLogger(), sendRecords)

	err := listener.Handle(tenantCtx("tnt_1"), outcomeEvent(dto.DispatchOutcome{
		SendRecordID: "send_1",
		TenantID:     "tnt_1",
		Status:       enum.SendStatusSent,
	}))
	require.NoError(t, err)

	require.Len(t, sendRecords.marked, 1)
	assert.Equal(t, "send_1", sendRecords.marked[0].id)
	assert.Equal(t, enum.SendStatusSent, sendRecords.marked[0].status)
}

func TestOutcomeListener_MarksFailedWithBounce(t *testing.T) {
	sendRecords := &fakeSendRecords{}
	listener := NewOutcomeListener(getLogger(), sendRecords)

	err := listener.Handle(tenantCtx("tnt_1"), outcomeEvent(dto.DispatchOutcome{
		SendRecordID:    "send_1",
		TenantID:        "tnt_1",
		Status:          enum.SendStatusFailed,
		PermanentBounce: true,
		Error:           "550 user unknown",
	}))
	require.NoError(t, err)

	require.Len(t, sendRecords.marked, 1)
	assert.True(t, sendRecords.marked[0].permanentBounce)
	assert.Equal(t, "550 user unknown", sendRecords.marked[0].lastError)
}

func TestOutcomeListener_RejectsNonTerminalStatus(t *testing.T) {
	sendRecords := &fakeSendRecords{}
	listener := NewOutcomeListener(getLogger(), sendRecords)

	err := listener.Handle(tenantCtx("tnt_1"), outcomeEvent(dto.DispatchOutcome{
		SendRecordID: "send_1",
		TenantID:     "tnt_1",
		Status:       enum.SendStatusPending,
	}))
	assert.Error(t, err)
	assert.Empty(t, sendRecords.marked)
}

func TestOutcomeListener_DropsOutcomeForMissingRecord(t *testing.T) {
	sendRecords := &fakeSendRecords{markErr: apperrors.ErrSendRecordNotFound}
	listener := NewOutcomeListener(getLogger(), sendRecords)

	// A rolled-back or already finalized record must not requeue forever.
	err := listener.Handle(tenantCtx("tnt_1"), outcomeEvent(dto.DispatchOutcome{
		SendRecordID: "send_gone",
		TenantID:     "tnt_1",
		Status:       enum.SendStatusSent,
	}))
	require.NoError(t, err)
	assert.Empty(t, sendRecords.marked)
}

func TestOutcomeListener_RequiresTenantContext(t *testing.T) {
	sendRecords := &fakeSendRecords{}
	listener := NewOutcomeListener(getLogger(), sendRecords)

	err := listener.Handle(context.Background(), outcomeEvent(dto.DispatchOutcome{
		SendRecordID: "send_1",
		TenantID:     "tnt_1",
		Status:       enum.SendStatusSent,
	}))
	assert.Error(t, err)
	assert.Empty(t, sendRecords.marked)
}

func TestGetEventType_UsesStructName(t *testing.T) {
	assert.Equal(t, "DispatchOutcome", GetEventType[dto.DispatchOutcome]())
	assert.Equal(t, "DispatchJob", GetEventType[dto.DispatchJob]())
}
