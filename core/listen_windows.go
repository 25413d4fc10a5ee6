//go:build windows

package core

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// Winsock reports WSAEADDRINUSE; the POSIX errno covers the emulated path.
var addrInUseErrnos = []error{windows.WSAEADDRINUSE, syscall.EADDRINUSE}
