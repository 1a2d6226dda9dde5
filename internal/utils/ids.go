package utils

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const nanoidAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func GenerateNanoIDWithPrefix(prefix string, length int) string {
	id, err := gonanoid.Generate(nanoidAlphabet, length)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s_%s", prefix, id)
}

func Now() time.Time {
	return time.Now().UTC()
}

// StartOfUTCDay truncates t to midnight UTC.
func StartOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextUTCMidnight returns the first instant of the next UTC day.
func NextUTCMidnight(t time.Time) time.Time {
	return StartOfUTCDay(t).Add(24 * time.Hour)
}

// UTCDateKey formats t as the yyyy-mm-dd bucket used by the quota counter.
func UTCDateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
