//go:build windows

package netsvc

import "syscall"

// reuseAddrControl is a no-op on windows: SO_REUSEADDR there has
// different (and looser) semantics than on unix, and smldaq's target
// deployment is embedded Linux.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
