//go:build linux

package cli

import "golang.org/x/sys/unix"

// Terminal attribute ioctls; BSD-derived kernels name them TIOCGETA and TIOCSETA.
const (
	getTermiosRequest = unix.TCGETS
	setTermiosRequest = unix.TCSETS
)
