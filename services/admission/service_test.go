package admission

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/enum"
	apperrors "github.com/sendgate/sendgate/internal/errors"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/models"
)

type fakeIdempotency struct {
	resolution *dto.IdempotencyResolution
	resolveErr error
	persistErr error
	// afterLoss is what Resolve returns once Persist has failed with
	// ErrIdempotencyKeyTaken, mimicking the winner's ledger row.
	afterLoss *dto.IdempotencyResolution
	lostRace  bool
	persisted []*dto.Acceptance
	forgotten []string
}

func (f *fakeIdempotency) Resolve(ctx context.Context, tenantID, clientKey, fingerprint string) (*dto.IdempotencyResolution, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if f.lostRace && f.afterLoss != nil {
		return f.afterLoss, nil
	}
	if f.resolution != nil {
		return f.resolution, nil
	}
	return &dto.IdempotencyResolution{New: true}, nil
}

func (f *fakeIdempotency) Persist(ctx context.Context, tenantID, clientKey, fingerprint string, acceptance *dto.Acceptance) error {
	if f.persistErr != nil {
		if errors.Is(f.persistErr, apperrors.ErrIdempotencyKeyTaken) {
			f.lostRace = true
		}
		return f.persistErr
	}
	f.persisted = append(f.persisted, acceptance)
	return nil
}

func (f *fakeIdempotency) Forget(ctx context.Context, tenantID, clientKey string) error {
	f.forgotten = append(f.forgotten, clientKey)
	return nil
}

func (f *fakeIdempotency) Fingerprint(req *dto.SendRequest) string {
	return "fp"
}

type fakeContentGate struct {
	evaluation *dto.ContentEvaluation
}

func (f *fakeContentGate) Evaluate(ctx context.Context, req *dto.SendRequest) *dto.ContentEvaluation {
	if f.evaluation != nil {
		return f.evaluation
	}
	return &dto.ContentEvaluation{Valid: true}
}

type fakeQuota struct {
	status     *dto.QuotaStatus
	increments int64
}

func (f *fakeQuota) Check(ctx context.Context, tenantID string) *dto.QuotaStatus {
	if f.status != nil {
		return f.status
	}
	return &dto.QuotaStatus{Decision: dto.QuotaAllowed, Allowed: true, Limit: 1000}
}

func (f *fakeQuota) Increment(ctx context.Context, tenantID string, n int64) {
	f.increments += n
}

type fakeSendRecords struct {
	interfaces.SendRecordRepository
	created   []*models.SendRecord
	deleted   []string
	statuses  map[string]enum.SendStatus
	createErr error
}

func (f *fakeSendRecords) Create(ctx context.Context, record *models.SendRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	if record.ID == "" {
		record.ID = "send_test"
	}
	f.created = append(f.created, record)
	return nil
}

func (f *fakeSendRecords) UpdateStatus(ctx context.Context, id string, status enum.SendStatus) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeSendRecords) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeQueue struct {
	idem       *fakeIdempotency
	jobs       []dto.DispatchJob
	enqueueErr error
	// ledgerRowsAtEnqueue captures how many ledger rows existed when each
	// job hit the queue.
	ledgerRowsAtEnqueue []int
}

func (f *fakeQueue) Enqueue(ctx context.Context, job dto.DispatchJob) (string, error) {
	f.ledgerRowsAtEnqueue = append(f.ledgerRowsAtEnqueue, len(f.idem.persisted))
	if f.enqueueErr != nil {
		return "", f.enqueueErr
	}
	f.jobs = append(f.jobs, job)
	return "job_1", nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fixture struct {
	idempotency *fakeIdempotency
	gate        *fakeContentGate
	quota       *fakeQuota
	sendRecords *fakeSendRecords
	queue       *fakeQueue
	svc         interfaces.AdmissionService
}

func setupAdmissionTest() *fixture {
	f := &fixture{
		idempotency: &fakeIdempotency{},
		gate:        &fakeContentGate{},
		quota:       &fakeQuota{},
		sendRecords: &fakeSendRecords{statuses: map[string]enum.SendStatus{}},
	}
	f.queue = &fakeQueue{idem: f.idempotency}
	f.svc = NewAdmissionService(f.idempotency, f.gate, f.quota, f.sendRecords, f.queue, getLogger())
	return f
}

func validRequest() *dto.SendRequest {
	return &dto.SendRequest{
		FromAddress: "billing@acme.com",
		ToAddresses: []string{"customer@example.com"},
		Subject:     "invoice",
		BodyText:    "your invoice",
	}
}

func TestSubmit_HappyPath(t *testing.T) {
	f := setupAdmissionTest()

	acceptance, err := f.svc.Submit(context.Background(), "tnt_1", validRequest())
	require.NoError(t, err)

	assert.Equal(t, enum.SendStatusEnqueued, acceptance.Status)
	assert.False(t, acceptance.Replay)
	require.Len(t, f.sendRecords.created, 1)
	assert.Equal(t, acceptance.SendRecordID, f.sendRecords.created[0].ID)
	assert.Equal(t, enum.SendStatusPending, f.sendRecords.created[0].Status)
	assert.Equal(t, enum.SendStatusEnqueued, f.sendRecords.statuses[acceptance.SendRecordID])
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, acceptance.SendRecordID, f.queue.jobs[0].SendRecordID)
	assert.Equal(t, int64(1), f.quota.increments)
}

func TestSubmit_ReplayShortCircuits(t *testing.T) {
	f := setupAdmissionTest()
	f.idempotency.resolution = &dto.IdempotencyResolution{
		SendRecordID: "send_original",
		Status:       enum.SendStatusEnqueued,
		Warnings:     []string{"counter store unavailable: connection refused"},
	}

	req := validRequest()
	req.ClientKey = "key-1"

	acceptance, err := f.svc.Submit(context.Background(), "tnt_1", req)
	require.NoError(t, err)

	assert.True(t, acceptance.Replay)
	assert.Equal(t, "send_original", acceptance.SendRecordID)
	assert.Equal(t, enum.SendStatusEnqueued, acceptance.Status)
	assert.Equal(t, f.idempotency.resolution.Warnings, acceptance.Warnings,
		"replay must carry the original acceptance's warnings")
	assert.Empty(t, f.sendRecords.created)
	assert.Empty(t, f.queue.jobs)
	assert.Zero(t, f.quota.increments)
}

func TestSubmit_ConflictPropagates(t *testing.T) {
	f := setupAdmissionTest()
	f.idempotency.resolveErr = &apperrors.IdempotencyConflictError{ClientKey: "key-1"}

	req := validRequest()
	req.ClientKey = "key-1"

	_, err := f.svc.Submit(context.Background(), "tnt_1", req)
	var conflict *apperrors.IdempotencyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Empty(t, f.sendRecords.created)
}

func TestSubmit_LedgerRowWrittenBeforeEnqueue(t *testing.T) {
	f := setupAdmissionTest()

	_, err := f.svc.Submit(context.Background(), "tnt_1", validRequest())
	require.NoError(t, err)
	assert.Empty(t, f.idempotency.persisted)

	req := validRequest()
	req.ClientKey = "key-1"
	acceptance, err := f.svc.Submit(context.Background(), "tnt_1", req)
	require.NoError(t, err)

	require.Len(t, f.idempotency.persisted, 1)
	assert.Equal(t, acceptance.SendRecordID, f.idempotency.persisted[0].SendRecordID)
	assert.Equal(t, enum.SendStatusEnqueued, f.idempotency.persisted[0].Status)
	// The keyed submission's ledger row must exist before its job hits
	// the queue so a concurrent duplicate cannot enqueue a second copy.
	require.Len(t, f.queue.ledgerRowsAtEnqueue, 2)
	assert.Equal(t, 0, f.queue.ledgerRowsAtEnqueue[0])
	assert.Equal(t, 1, f.queue.ledgerRowsAtEnqueue[1])
}

func TestSubmit_ConcurrentDuplicatesResolveToOneWinner(t *testing.T) {
	f := setupAdmissionTest()
	// Both submissions read the ledger before either wrote it; this one
	// loses the insert race and must surface the winner's outcome.
	f.idempotency.persistErr = apperrors.ErrIdempotencyKeyTaken
	f.idempotency.afterLoss = &dto.IdempotencyResolution{
		SendRecordID: "send_winner",
		Status:       enum.SendStatusEnqueued,
	}

	req := validRequest()
	req.ClientKey = "key-1"

	acceptance, err := f.svc.Submit(context.Background(), "tnt_1", req)
	require.NoError(t, err)

	assert.Equal(t, "send_winner", acceptance.SendRecordID)
	assert.Equal(t, enum.SendStatusEnqueued, acceptance.Status)
	assert.True(t, acceptance.Replay)

	// The loser's own record is compensated away and nothing reaches the
	// queue or the quota counter on its behalf.
	require.Len(t, f.sendRecords.created, 1)
	assert.Equal(t, []string{f.sendRecords.created[0].ID}, f.sendRecords.deleted)
	assert.Empty(t, f.queue.jobs)
	assert.Zero(t, f.quota.increments)
}

func TestSubmit_ContentRejection(t *testing.T) {
	f := setupAdmissionTest()
	f.gate.evaluation = &dto.ContentEvaluation{
		Valid:    false,
		Errors:   []string{"forbidden markup: script tag"},
		Warnings: []string{"link shortener: bit.ly"},
		Score:    60,
	}

	_, err := f.svc.Submit(context.Background(), "tnt_1", validRequest())
	var rejected *apperrors.ContentRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 60, rejected.Score)
	assert.Equal(t, []string{"forbidden markup: script tag"}, rejected.Reasons)
	assert.Equal(t, []string{"link shortener: bit.ly"}, rejected.Warnings)
	assert.Empty(t, f.sendRecords.created)
	assert.Zero(t, f.quota.increments)
}

func TestSubmit_QuotaExceeded(t *testing.T) {
	f := setupAdmissionTest()
	resetsAt := time.Now().UTC().Add(time.Hour)
	f.quota.status = &dto.QuotaStatus{
		Decision: dto.QuotaDenied,
		Current:  1000,
		Limit:    1000,
		ResetsAt: resetsAt,
		Reason:   dto.QuotaReasonLimitReached,
	}

	_, err := f.svc.Submit(context.Background(), "tnt_1", validRequest())
	var quotaErr *apperrors.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, int64(1000), quotaErr.Current)
	assert.Equal(t, resetsAt, quotaErr.ResetsAt)
	assert.Empty(t, f.sendRecords.created)
}

func TestSubmit_SuspendedTenant(t *testing.T) {
	f := setupAdmissionTest()
	f.quota.status = &dto.QuotaStatus{
		Decision: dto.QuotaDenied,
		Reason:   dto.QuotaReasonSuspended,
	}

	_, err := f.svc.Submit(context.Background(), "tnt_1", validRequest())
	var suspended *apperrors.SuspendedError
	require.ErrorAs(t, err, &suspended)
}

func TestSubmit_EnqueueFailureRollsBackRecord(t *testing.T) {
	f := setupAdmissionTest()
	f.queue.enqueueErr = errors.New("broker unreachable")

	_, err := f.svc.Submit(context.Background(), "tnt_1", validRequest())
	var enqueueErr *apperrors.EnqueueError
	require.ErrorAs(t, err, &enqueueErr)
	assert.Contains(t, enqueueErr.Error(), "broker unreachable")

	// The pending record was created, then compensated away.
	require.Len(t, f.sendRecords.created, 1)
	assert.Equal(t, []string{f.sendRecords.created[0].ID}, f.sendRecords.deleted)
	assert.Empty(t, f.idempotency.forgotten, "no ledger row exists without a client key")
	assert.Zero(t, f.quota.increments, "quota must not count work that never reached the queue")
}

func TestSubmit_EnqueueFailureForgetsLedgerEntry(t *testing.T) {
	f := setupAdmissionTest()
	f.queue.enqueueErr = errors.New("broker unreachable")

	req := validRequest()
	req.ClientKey = "key-1"

	_, err := f.svc.Submit(context.Background(), "tnt_1", req)
	var enqueueErr *apperrors.EnqueueError
	require.ErrorAs(t, err, &enqueueErr)

	// The ledger row must not pin a replay to a rolled-back record.
	assert.Equal(t, []string{"key-1"}, f.idempotency.forgotten)
	require.Len(t, f.sendRecords.created, 1)
	assert.Equal(t, []string{f.sendRecords.created[0].ID}, f.sendRecords.deleted)
}

func TestSubmit_DegradedQuotaSurfacesWarning(t *testing.T) {
	f := setupAdmissionTest()
	f.quota.status = &dto.QuotaStatus{
		Decision: dto.QuotaAllowedWithWarning,
		Allowed:  true,
		Reason:   "counter store unavailable: connection refused",
	}

	acceptance, err := f.svc.Submit(context.Background(), "tnt_1", validRequest())
	require.NoError(t, err)
	require.NotEmpty(t, acceptance.Warnings)
	assert.Contains(t, acceptance.Warnings[0], "counter store unavailable")
}

func TestSubmitBatchItem_SkipsIdempotencyAndLinksBatch(t *testing.T) {
	f := setupAdmissionTest()
	f.idempotency.resolveErr = errors.New("ledger must not be consulted for batch items")

	req := validRequest()
	req.ClientKey = "key-ignored"

	acceptance, err := f.svc.SubmitBatchItem(context.Background(), "tnt_1", "btch_1", req)
	require.NoError(t, err)

	require.Len(t, f.sendRecords.created, 1)
	require.NotNil(t, f.sendRecords.created[0].BatchID)
	assert.Equal(t, "btch_1", *f.sendRecords.created[0].BatchID)
	assert.Equal(t, "btch_1", f.queue.jobs[0].BatchID)
	assert.Empty(t, f.idempotency.persisted)
	assert.Equal(t, enum.SendStatusEnqueued, acceptance.Status)
}

func TestSubmit_TenantNotFound(t *testing.T) {
	f := setupAdmissionTest()
	f.quota.status = &dto.QuotaStatus{
		Decision: dto.QuotaDenied,
		Reason:   dto.QuotaReasonTenantNotFound,
	}

	_, err := f.svc.Submit(context.Background(), "tnt_missing", validRequest())
	assert.ErrorIs(t, err, apperrors.ErrTenantNotFound)
}
