//go:build !unix

package process

import "os/exec"

// killProcessGroup keeps the default cancellation, which kills only the
// plugin process; cmd.WaitDelay still bounds the wait for its descendants.
func killProcessGroup(*exec.Cmd) {}
