package batch

import (
	"fmt"
	"net/mail"

	"github.com/sendgate/sendgate/dto"
)

const (
	maxRecipientsPerMessage = 100
	maxSubjectLength        = 1000
	maxBodyBytes            = 10 * 1024 * 1024
)

// validateItem checks one batch item structurally: required fields,
// address syntax and size limits. It has no side effects and consults no
// stores, so the all-or-nothing upfront pass can run it over the whole
// batch before any record exists.
func validateItem(item *dto.SendRequest) []string {
	var reasons []string

	if item.FromAddress == "" {
		reasons = append(reasons, "missing from address")
	} else if _, err := mail.ParseAddress(item.FromAddress); err != nil {
		reasons = append(reasons, fmt.Sprintf("invalid from address %q", item.FromAddress))
	}

	if len(item.ToAddresses) == 0 {
		reasons = append(reasons, "no recipients")
	}
	for _, list := range []struct {
		name      string
		addresses []string
	}{
		{"to", item.ToAddresses},
		{"cc", item.CcAddresses},
		{"bcc", item.BccAddresses},
	} {
		for _, address := range list.addresses {
			if _, err := mail.ParseAddress(address); err != nil {
				reasons = append(reasons, fmt.Sprintf("invalid %s address %q", list.name, address))
			}
		}
	}

	if total := len(item.ToAddresses) + len(item.CcAddresses) + len(item.BccAddresses); total > maxRecipientsPerMessage {
		reasons = append(reasons, fmt.Sprintf("%d recipients exceeds the limit of %d", total, maxRecipientsPerMessage))
	}

	if len(item.Subject) > maxSubjectLength {
		reasons = append(reasons, fmt.Sprintf("subject exceeds %d characters", maxSubjectLength))
	}
	if len(item.BodyText)+len(item.BodyHTML) > maxBodyBytes {
		reasons = append(reasons, "body exceeds the size limit")
	}

	return reasons
}
