// File: control/debug_test.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	require.Contains(t, dp.Names(), "platform.cpus")

	dp.RegisterProbe("answer", func() any { return 42 })
	dp.RegisterProbe("answer", func() any { return 43 })
	state := dp.DumpState()
	require.Equal(t, 43, state["answer"])
	require.Positive(t, state["platform.cpus"])
}
