package contentgate

import "regexp"

// Scoring weights. Hard findings carry a penalty large enough to trip the
// default rejection threshold on their own; soft findings only add up.
const (
	disposableDomainPenalty = 50
	forbiddenMarkupPenalty  = 50
	lexiconHitPenalty       = 5
	suspiciousLinkPenalty   = 10
	lowTextRatioPenalty     = 10
)

// minMarkupLengthForRatio keeps the text-to-markup heuristic off short
// snippets where the ratio is meaningless.
const minMarkupLengthForRatio = 200

// minTextToMarkupRatio is the fraction of visible text below which an HTML
// body is considered markup-heavy.
const minTextToMarkupRatio = 0.2

var disposableDomains = map[string]struct{}{
	"10minutemail.com":  {},
	"dispostable.com":   {},
	"fakeinbox.com":     {},
	"getnada.com":       {},
	"guerrillamail.com": {},
	"maildrop.cc":       {},
	"mailinator.com":    {},
	"mintemail.com":     {},
	"sharklasers.com":   {},
	"spamgourmet.com":   {},
	"temp-mail.org":     {},
	"tempmail.com":      {},
	"throwaway.email":   {},
	"trashmail.com":     {},
	"yopmail.com":       {},
}

// forbiddenMarkupPatterns match executable or interactive constructs that
// have no place in outbound mail.
var forbiddenMarkupPatterns = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"script tag", regexp.MustCompile(`(?i)<\s*script\b`)},
	{"iframe tag", regexp.MustCompile(`(?i)<\s*iframe\b`)},
	{"object tag", regexp.MustCompile(`(?i)<\s*object\b`)},
	{"embed tag", regexp.MustCompile(`(?i)<\s*embed\b`)},
	{"form tag", regexp.MustCompile(`(?i)<\s*form\b`)},
	{"javascript url", regexp.MustCompile(`(?i)javascript\s*:`)},
	{"inline event handler", regexp.MustCompile(`(?i)<[^>]+\son\w+\s*=`)},
}

var spamLexicon = []string{
	"100% free",
	"act now",
	"casino",
	"click here",
	"double your income",
	"earn extra cash",
	"free money",
	"guaranteed winner",
	"limited time offer",
	"lottery",
	"make money fast",
	"no obligation",
	"risk free",
	"viagra",
	"weight loss",
	"you have been selected",
}

var linkShortenerDomains = map[string]struct{}{
	"bit.ly":      {},
	"buff.ly":     {},
	"cutt.ly":     {},
	"goo.gl":      {},
	"is.gd":       {},
	"ow.ly":       {},
	"rebrand.ly":  {},
	"t.co":        {},
	"tinyurl.com": {},
}

var (
	urlPattern        = regexp.MustCompile(`(?i)https?://([^\s"'<>\)]+)`)
	ipLiteralPattern  = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}(:\d+)?([/?#]|$)`)
	markupTagPattern  = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)
