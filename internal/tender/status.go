package tender

import (
	"strings"
	"time"

	"tender-writer/internal/domain"
)

// DeriveStatus picks a tender's status. A non-blank explicit status wins,
// trimmed but otherwise as given. Otherwise a tender is Open while its
// closing date is unknown or still ahead of now, and Closed after that.
func DeriveStatus(explicit string, closing, now time.Time) domain.Status {
	if s := strings.TrimSpace(explicit); s != "" {
		return domain.Status(s)
	}
	if closing.IsZero() || closing.After(now) {
		return domain.StatusOpen
	}
	return domain.StatusClosed
}
