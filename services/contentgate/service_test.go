package contentgate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/config"
	"github.com/sendgate/sendgate/internal/logger"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func newGate() interfaces.ContentGateService {
	return NewContentGateService(&config.ContentGateConfig{RejectionThreshold: 50}, getLogger())
}

func TestEvaluate_CleanMessagePasses(t *testing.T) {
	gate := newGate()

	result := gate.Evaluate(context.Background(), &dto.SendRequest{
		FromAddress: "billing@acme.com",
		ToAddresses: []string{"customer@example.com"},
		Subject:     "Your September invoice",
		BodyText:    "Hi, your invoice for September is attached. Thanks!",
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Zero(t, result.Score)
}

func TestEvaluate_DisposableRecipientIsHardError(t *testing.T) {
	gate := newGate()

	result := gate.Evaluate(context.Background(), &dto.SendRequest{
		ToAddresses: []string{"someone@mailinator.com"},
		Subject:     "hello",
		BodyText:    "perfectly normal content",
	})

	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "mailinator.com")
	assert.GreaterOrEqual(t, result.Score, disposableDomainPenalty)
}

func TestEvaluate_DisposableBccIsAlsoCaught(t *testing.T) {
	gate := newGate()

	result := gate.Evaluate(context.Background(), &dto.SendRequest{
		ToAddresses:  []string{"customer@example.com"},
		BccAddresses: []string{"drop@yopmail.com"},
		BodyText:     "normal content",
	})

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "yopmail.com")
}

func TestEvaluate_ForbiddenMarkupIsHardError(t *testing.T) {
	gate := newGate()

	for _, body := range []string{
		`<p>hi</p><script>alert(1)</script>`,
		`<iframe src="https://example.com"></iframe>`,
		`<a href="javascript:void(0)">click</a>`,
		`<img src="x.png" onerror="steal()">`,
	} {
		result := gate.Evaluate(context.Background(), &dto.SendRequest{
			ToAddresses: []string{"customer@example.com"},
			BodyHTML:    body,
		})
		assert.False(t, result.Valid, "body %q should be rejected", body)
		assert.NotEmpty(t, result.Errors)
	}
}

func TestEvaluate_LexiconHitsWarnButDoNotAloneInvalidate(t *testing.T) {
	gate := newGate()

	result := gate.Evaluate(context.Background(), &dto.SendRequest{
		ToAddresses: []string{"customer@example.com"},
		Subject:     "act now",
		BodyText:    "This risk free offer is 100% free. Click here.",
	})

	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, 4*lexiconHitPenalty, result.Score)
}

func TestEvaluate_AccumulatedSoftScoreCrossesThreshold(t *testing.T) {
	gate := newGate()

	// Ten distinct lexicon phrases at 5 points each reach the default
	// threshold of 50 without a single hard error.
	result := gate.Evaluate(context.Background(), &dto.SendRequest{
		ToAddresses: []string{"customer@example.com"},
		BodyText: "free money, act now, guaranteed winner, risk free, no obligation, " +
			"click here, make money fast, earn extra cash, limited time offer, lottery",
	})

	assert.False(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.GreaterOrEqual(t, result.Score, 50)
}

func TestEvaluate_SuspiciousLinks(t *testing.T) {
	gate := newGate()

	result := gate.Evaluate(context.Background(), &dto.SendRequest{
		ToAddresses: []string{"customer@example.com"},
		BodyText:    "see https://bit.ly/3xyz and http://192.168.1.10/login",
	})

	assert.True(t, result.Valid)
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, 2*suspiciousLinkPenalty, result.Score)
}

func TestEvaluate_LowTextToMarkupRatio(t *testing.T) {
	gate := newGate()

	body := strings.Repeat(`<div class="wrapper" style="margin:0;padding:0"></div>`, 10) + "hi"
	result := gate.Evaluate(context.Background(), &dto.SendRequest{
		ToAddresses: []string{"customer@example.com"},
		BodyHTML:    body,
	})

	assert.True(t, result.Valid)
	assert.Contains(t, result.Warnings, "low text-to-markup ratio")
	assert.Equal(t, lowTextRatioPenalty, result.Score)
}

func TestEvaluate_RecipientWithoutDomainIsIgnored(t *testing.T) {
	gate := newGate()

	result := gate.Evaluate(context.Background(), &dto.SendRequest{
		ToAddresses: []string{"not-an-address"},
		BodyText:    "normal content",
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}
