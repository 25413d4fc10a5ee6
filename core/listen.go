package core

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// PortInUseError is returned by Listen when another process holds the address.
type PortInUseError struct {
	Addr  string
	Cause error
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("address %s is already in use (choose another with PORT or --port)", e.Addr)
}

func (e *PortInUseError) Unwrap() error {
	return e.Cause
}

// Listen opens the HTTP listener, reporting an occupied port as *PortInUseError.
func Listen(host string, port int) (net.Listener, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err == nil {
		return ln, nil
	}
	for _, errno := range addrInUseErrnos {
		if errors.Is(err, errno) {
			return nil, &PortInUseError{Addr: addr, Cause: err}
		}
	}
	return nil, err
}

// IsPortInUse reports whether err came from an occupied listen address.
func IsPortInUse(err error) bool {
	var target *PortInUseError
	return errors.As(err, &target)
}
