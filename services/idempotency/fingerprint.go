package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/internal/utils"
)

// fingerprintRequest hashes the canonical form of a send request. Address
// lists are lowercased and trimmed; cc, bcc and tags are additionally
// sorted so that reorderings of unordered fields hash identically. The
// recipient list keeps its submitted order.
func fingerprintRequest(req *dto.SendRequest) string {
	to := make([]string, 0, len(req.ToAddresses))
	for _, a := range req.ToAddresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			to = append(to, a)
		}
	}

	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)

	var b strings.Builder
	writeField(&b, "from", strings.ToLower(strings.TrimSpace(req.FromAddress)))
	writeField(&b, "to", strings.Join(to, ","))
	writeField(&b, "cc", strings.Join(utils.NormalizeAddressList(req.CcAddresses), ","))
	writeField(&b, "bcc", strings.Join(utils.NormalizeAddressList(req.BccAddresses), ","))
	writeField(&b, "subject", req.Subject)
	writeField(&b, "text", req.BodyText)
	writeField(&b, "html", req.BodyHTML)
	writeField(&b, "tags", strings.Join(tags, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte('\n')
}
