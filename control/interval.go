// File: control/interval.go
// Author: momentics <momentics@gmail.com>
//
// Human-readable rendering of elapsed time.

package control

import (
	"strconv"
	"strings"
	"time"
)

type intervalUnit struct {
	size             time.Duration
	modulo           int64
	singular, plural string
}

var intervalUnits = [...]intervalUnit{
	{24 * time.Hour, 0, "day", "days"},
	{time.Hour, 24, "hour", "hours"},
	{time.Minute, 60, "min", "mins"},
	{time.Second, 60, "sec", "secs"},
}

// FormatInterval renders d largest unit first, e.g. "1 day 1 hour" or
// "1 min 1 sec". Zero components are omitted and anything under a second
// renders as "0 secs".
func FormatInterval(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	parts := make([]string, 0, len(intervalUnits))
	for _, u := range intervalUnits {
		n := int64(d / u.size)
		if u.modulo > 0 {
			n %= u.modulo
		}
		if n == 0 {
			continue
		}
		name := u.plural
		if n == 1 {
			name = u.singular
		}
		parts = append(parts, strconv.FormatInt(n, 10)+" "+name)
	}
	if len(parts) == 0 {
		return "0 secs"
	}
	return strings.Join(parts, " ")
}
