package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/enum"
	apperrors "github.com/sendgate/sendgate/internal/errors"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/models"
)

type fakeLedger struct {
	records map[string]*models.IdempotencyRecord
	getErr  error
}

func ledgerKey(tenantID, clientKey string) string {
	return tenantID + "/" + clientKey
}

func (f *fakeLedger) GetByKey(ctx context.Context, tenantID, clientKey string) (*models.IdempotencyRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.records[ledgerKey(tenantID, clientKey)], nil
}

// Create mirrors the repository's insert-or-lose semantics: a row that
// already exists makes the writer lose the race.
func (f *fakeLedger) Create(ctx context.Context, record *models.IdempotencyRecord) error {
	key := ledgerKey(record.TenantID, record.ClientKey)
	if _, exists := f.records[key]; exists {
		return apperrors.ErrIdempotencyKeyTaken
	}
	f.records[key] = record
	return nil
}

func (f *fakeLedger) Delete(ctx context.Context, tenantID, clientKey string) error {
	delete(f.records, ledgerKey(tenantID, clientKey))
	return nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func setupIdempotencyTest() (*fakeLedger, interfaces.IdempotencyService) {
	ledger := &fakeLedger{records: map[string]*models.IdempotencyRecord{}}
	svc := NewIdempotencyService(ledger, getLogger())
	return ledger, svc
}

func TestResolve_NoRecordIsNew(t *testing.T) {
	_, svc := setupIdempotencyTest()

	resolution, err := svc.Resolve(context.Background(), "tnt_1", "key-1", "fp")
	require.NoError(t, err)
	assert.True(t, resolution.New)
}

func TestResolve_ReplayReturnsOriginalAcceptance(t *testing.T) {
	ledger, svc := setupIdempotencyTest()

	ledger.records[ledgerKey("tnt_1", "key-1")] = &models.IdempotencyRecord{
		ID:                 "idem_1",
		TenantID:           "tnt_1",
		ClientKey:          "key-1",
		RequestFingerprint: "fp",
		SendRecordID:       "send_abc",
		AcceptedStatus:     enum.SendStatusEnqueued,
		Warnings:           []string{"counter store unavailable: connection refused"},
		ExpiresAt:          time.Now().UTC().Add(time.Hour),
	}

	resolution, err := svc.Resolve(context.Background(), "tnt_1", "key-1", "fp")
	require.NoError(t, err)
	assert.False(t, resolution.New)
	assert.Equal(t, "send_abc", resolution.SendRecordID)
	// The resolution carries what the first caller saw, not the record's
	// later dispatch progress.
	assert.Equal(t, enum.SendStatusEnqueued, resolution.Status)
	assert.Equal(t, []string{"counter store unavailable: connection refused"}, resolution.Warnings)
}

func TestResolve_ConflictOnFingerprintMismatch(t *testing.T) {
	ledger, svc := setupIdempotencyTest()

	ledger.records[ledgerKey("tnt_1", "key-1")] = &models.IdempotencyRecord{
		TenantID:           "tnt_1",
		ClientKey:          "key-1",
		RequestFingerprint: "fp-original",
		SendRecordID:       "send_abc",
		ExpiresAt:          time.Now().UTC().Add(time.Hour),
	}

	_, err := svc.Resolve(context.Background(), "tnt_1", "key-1", "fp-different")
	var conflict *apperrors.IdempotencyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "key-1", conflict.ClientKey)
}

func TestResolve_ExpiredRecordIsEvictedAndTreatedAsNew(t *testing.T) {
	ledger, svc := setupIdempotencyTest()

	ledger.records[ledgerKey("tnt_1", "key-1")] = &models.IdempotencyRecord{
		TenantID:           "tnt_1",
		ClientKey:          "key-1",
		RequestFingerprint: "fp-original",
		SendRecordID:       "send_abc",
		ExpiresAt:          time.Now().UTC().Add(-time.Minute),
	}

	// Even a different fingerprint is fine once the record expired.
	resolution, err := svc.Resolve(context.Background(), "tnt_1", "key-1", "fp-different")
	require.NoError(t, err)
	assert.True(t, resolution.New)
	assert.Empty(t, ledger.records)
}

func TestPersist_WritesLedgerEntryWith24hExpiry(t *testing.T) {
	ledger, svc := setupIdempotencyTest()

	err := svc.Persist(context.Background(), "tnt_1", "key-1", "fp", &dto.Acceptance{
		SendRecordID: "send_abc",
		Status:       enum.SendStatusEnqueued,
		Warnings:     []string{"counter store unavailable: connection refused"},
	})
	require.NoError(t, err)

	record := ledger.records[ledgerKey("tnt_1", "key-1")]
	require.NotNil(t, record)
	assert.Equal(t, "fp", record.RequestFingerprint)
	assert.Equal(t, "send_abc", record.SendRecordID)
	assert.Equal(t, enum.SendStatusEnqueued, record.AcceptedStatus)
	assert.Equal(t, []string{"counter store unavailable: connection refused"}, []string(record.Warnings))
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), record.ExpiresAt, time.Minute)
}

func TestPersist_SurfacesLostRace(t *testing.T) {
	ledger, svc := setupIdempotencyTest()

	err := svc.Persist(context.Background(), "tnt_1", "key-1", "fp", &dto.Acceptance{
		SendRecordID: "send_winner",
		Status:       enum.SendStatusEnqueued,
	})
	require.NoError(t, err)

	err = svc.Persist(context.Background(), "tnt_1", "key-1", "fp", &dto.Acceptance{
		SendRecordID: "send_loser",
		Status:       enum.SendStatusEnqueued,
	})
	assert.ErrorIs(t, err, apperrors.ErrIdempotencyKeyTaken)

	// The winner's row is untouched; the loser re-resolves against it.
	record := ledger.records[ledgerKey("tnt_1", "key-1")]
	require.NotNil(t, record)
	assert.Equal(t, "send_winner", record.SendRecordID)

	resolution, err := svc.Resolve(context.Background(), "tnt_1", "key-1", "fp")
	require.NoError(t, err)
	assert.False(t, resolution.New)
	assert.Equal(t, "send_winner", resolution.SendRecordID)
}

func TestForget_RemovesLedgerEntry(t *testing.T) {
	ledger, svc := setupIdempotencyTest()

	err := svc.Persist(context.Background(), "tnt_1", "key-1", "fp", &dto.Acceptance{
		SendRecordID: "send_abc",
		Status:       enum.SendStatusEnqueued,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Forget(context.Background(), "tnt_1", "key-1"))
	assert.Empty(t, ledger.records)

	resolution, err := svc.Resolve(context.Background(), "tnt_1", "key-1", "fp")
	require.NoError(t, err)
	assert.True(t, resolution.New)
}

func TestFingerprint_OrderInsensitiveForUnorderedFields(t *testing.T) {
	_, svc := setupIdempotencyTest()

	a := &dto.SendRequest{
		FromAddress:  "Sender@Example.com",
		ToAddresses:  []string{"first@example.com", "second@example.com"},
		CcAddresses:  []string{"cc1@example.com", "cc2@example.com"},
		BccAddresses: []string{"bcc1@example.com", "bcc2@example.com"},
		Subject:      "hello",
		BodyText:     "plain body",
		Tags:         []string{"welcome", "onboarding"},
	}
	b := &dto.SendRequest{
		FromAddress:  "sender@example.com",
		ToAddresses:  []string{"first@example.com", "second@example.com"},
		CcAddresses:  []string{"CC2@example.com ", "cc1@example.com"},
		BccAddresses: []string{"bcc2@example.com", " bcc1@example.com"},
		Subject:      "hello",
		BodyText:     "plain body",
		Tags:         []string{"onboarding", "welcome"},
	}

	assert.Equal(t, svc.Fingerprint(a), svc.Fingerprint(b))
}

func TestFingerprint_ContentChangesTheHash(t *testing.T) {
	_, svc := setupIdempotencyTest()

	a := &dto.SendRequest{
		FromAddress: "sender@example.com",
		ToAddresses: []string{"first@example.com"},
		Subject:     "hello",
		BodyText:    "plain body",
	}
	b := &dto.SendRequest{
		FromAddress: "sender@example.com",
		ToAddresses: []string{"first@example.com"},
		Subject:     "hello",
		BodyText:    "a different body",
	}

	assert.NotEqual(t, svc.Fingerprint(a), svc.Fingerprint(b))
}

func TestFingerprint_FieldValuesDoNotBleedAcrossFields(t *testing.T) {
	_, svc := setupIdempotencyTest()

	a := &dto.SendRequest{Subject: "ab", BodyText: "c"}
	b := &dto.SendRequest{Subject: "a", BodyText: "bc"}

	assert.NotEqual(t, svc.Fingerprint(a), svc.Fingerprint(b))
}
