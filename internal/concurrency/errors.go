// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrAlreadyRunning indicates Run was called while another Run is active.
	ErrAlreadyRunning = errors.New("scheduler already running")
)
