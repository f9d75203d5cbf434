// File: control/interval_test.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatInterval(t *testing.T) {
	day := 24 * time.Hour
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 secs"},
		{500 * time.Millisecond, "0 secs"},
		{-time.Minute, "0 secs"},
		{time.Second, "1 sec"},
		{59 * time.Second, "59 secs"},
		{61 * time.Second, "1 min 1 sec"},
		{2 * time.Minute, "2 mins"},
		{time.Hour, "1 hour"},
		{3*time.Hour + 5*time.Second, "3 hours 5 secs"},
		{day + time.Hour, "1 day 1 hour"},
		{3*day + 2*time.Hour + 4*time.Minute + time.Second, "3 days 2 hours 4 mins 1 sec"},
	}
	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			require.Equal(t, c.want, FormatInterval(c.in))
		})
	}
}
