package contentgate

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/config"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/tracing"
)

type contentGateService struct {
	cfg *config.ContentGateConfig
	log logger.Logger
}

func NewContentGateService(cfg *config.ContentGateConfig, log logger.Logger) interfaces.ContentGateService {
	return &contentGateService{
		cfg: cfg,
		log: log,
	}
}

// Evaluate scores one message against the content rules. The gate itself
// failing is never a reason to block a send: any internal panic is caught
// and the message passes with a warning.
func (s *contentGateService) Evaluate(ctx context.Context, req *dto.SendRequest) (evaluation *dto.ContentEvaluation) {
	span, _ := opentracing.StartSpanFromContext(ctx, "contentGateService.Evaluate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("content gate evaluation panicked, failing open: %v", r)
			tracing.TraceErr(span, fmt.Errorf("content gate panic: %v", r))
			evaluation = &dto.ContentEvaluation{
				Valid:    true,
				Warnings: []string{fmt.Sprintf("content evaluation failed internally: %v", r)},
			}
		}
	}()

	var (
		errs     []string
		warnings []string
		score    int
	)

	for _, domain := range disposableRecipientDomains(req) {
		errs = append(errs, fmt.Sprintf("recipient uses disposable domain %s", domain))
		score += disposableDomainPenalty
	}

	for _, label := range forbiddenMarkupFindings(req.BodyHTML) {
		errs = append(errs, fmt.Sprintf("forbidden markup: %s", label))
		score += forbiddenMarkupPenalty
	}

	content := strings.ToLower(req.Subject + "\n" + req.BodyText + "\n" + req.BodyHTML)
	for _, phrase := range spamLexicon {
		if hits := strings.Count(content, phrase); hits > 0 {
			warnings = append(warnings, fmt.Sprintf("spam phrase %q (%dx)", phrase, hits))
			score += hits * lexiconHitPenalty
		}
	}

	for _, link := range suspiciousLinks(req.BodyText + "\n" + req.BodyHTML) {
		warnings = append(warnings, fmt.Sprintf("suspicious link: %s", link))
		score += suspiciousLinkPenalty
	}

	if lowTextToMarkupRatio(req.BodyHTML) {
		warnings = append(warnings, "low text-to-markup ratio")
		score += lowTextRatioPenalty
	}

	valid := len(errs) == 0 && score < s.cfg.RejectionThreshold
	span.LogKV("valid", valid, "score", score)

	return &dto.ContentEvaluation{
		Valid:    valid,
		Errors:   errs,
		Warnings: warnings,
		Score:    score,
	}
}

func disposableRecipientDomains(req *dto.SendRequest) []string {
	var found []string
	seen := map[string]struct{}{}
	for _, list := range [][]string{req.ToAddresses, req.CcAddresses, req.BccAddresses} {
		for _, address := range list {
			at := strings.LastIndex(address, "@")
			if at < 0 {
				continue
			}
			domain := strings.ToLower(strings.TrimSpace(address[at+1:]))
			if _, disposable := disposableDomains[domain]; !disposable {
				continue
			}
			if _, dup := seen[domain]; dup {
				continue
			}
			seen[domain] = struct{}{}
			found = append(found, domain)
		}
	}
	return found
}

func forbiddenMarkupFindings(html string) []string {
	if html == "" {
		return nil
	}
	var found []string
	for _, rule := range forbiddenMarkupPatterns {
		if rule.pattern.MatchString(html) {
			found = append(found, rule.label)
		}
	}
	return found
}

// suspiciousLinks returns every URL pointing at a link shortener or a raw
// IP literal, one entry per occurrence.
func suspiciousLinks(content string) []string {
	var found []string
	for _, match := range urlPattern.FindAllStringSubmatch(content, -1) {
		rest := match[1]
		host := rest
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
		host = strings.ToLower(host)
		if i := strings.Index(host, ":"); i >= 0 {
			host = host[:i]
		}
		if _, shortener := linkShortenerDomains[host]; shortener {
			found = append(found, match[0])
			continue
		}
		if ipLiteralPattern.MatchString(rest) {
			found = append(found, match[0])
		}
	}
	return found
}

func lowTextToMarkupRatio(html string) bool {
	if len(html) < minMarkupLengthForRatio {
		return false
	}
	text := markupTagPattern.ReplaceAllString(html, " ")
	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
	ratio := float64(len(text)) / float64(len(html))
	return ratio < minTextToMarkupRatio
}
