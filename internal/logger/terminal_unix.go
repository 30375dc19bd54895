//go:build !windows

package logger

import (
	"syscall"
	"unsafe"
)

// isTerminal reports whether fd refers to a terminal, used to decide
// whether the text handler should emit ANSI color codes.
func isTerminal(fd uintptr) bool {
	var termios syscall.Termios
	_, _, err := syscall.Syscall6(
		syscall.SYS_IOCTL,
		fd,
		tcgets,
		uintptr(unsafe.Pointer(&termios)),
		0, 0, 0,
	)
	return err == 0
}
