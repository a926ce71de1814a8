//go:build !unix

package subprocess

import "syscall"

func signalName(sig syscall.Signal) string {
	return sig.String()
}
