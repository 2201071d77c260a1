package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
)

func Ptr[T any](v T) *T {
	return &v
}

// PageCount returns how many pages of size perPage are needed for n items.
func PageCount(n, perPage int) int {
	if n <= 0 || perPage <= 0 {
		return 0
	}
	return (n + perPage - 1) / perPage
}

// PageBounds returns the [start, end) slice bounds of page.
func PageBounds(page, perPage, n int) (int, int) {
	start := min(max(page, 0)*perPage, n)
	return start, min(start+perPage, n)
}

// FormatRoomLine renders one room for listings.
func FormatRoomLine(v rooms.RoomView, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<#%s> `%s`", v.RoomID, v.Name)
	if v.Locked {
		b.WriteString(" 🔒")
	}
	if v.OwnerID != nil {
		fmt.Fprintf(&b, " • owner <@%s>", *v.OwnerID)
	} else {
		b.WriteString(" • unclaimed")
	}
	if v.UserLimit > 0 {
		fmt.Fprintf(&b, " • limit %d", v.UserLimit)
	}
	fmt.Fprintf(&b, " • up %s", FormatDuration(now.Sub(v.CreatedAt)))
	return b.String()
}

// FormatDuration prints d as "1h 5m", "3m 10s" or "42s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
