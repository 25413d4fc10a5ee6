//go:build !windows

package core

import "syscall"

var addrInUseErrnos = []error{syscall.EADDRINUSE}
