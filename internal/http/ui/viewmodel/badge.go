package viewmodel

import "strconv"

// badgeCap is the largest count shown verbatim.
const badgeCap = 9

// BadgeLabel formats a pending-approval count for the navigation badge.
// Counts above nine collapse to "9+".
func BadgeLabel(n int) string {
	if n < 0 {
		n = 0
	}
	if n > badgeCap {
		return strconv.Itoa(badgeCap) + "+"
	}
	return strconv.Itoa(n)
}

// Badge is the notification indicator in the page header.
type Badge struct {
	Count int
	Label string
	// Visible is false at zero so the header stays quiet.
	Visible bool
	Loading bool
	// Stale is set when the last refresh failed and Count reflects older data.
	Stale bool
	Error string
	// PollSeconds drives the fragment's hx-trigger interval.
	PollSeconds int
}

// NewBadge builds the badge for count.
func NewBadge(count int) Badge {
	return Badge{Count: count, Label: BadgeLabel(count), Visible: count > 0}
}
