//go:build windows

package cmd

import "os"

// gracefulSignals returns the OS signals serve listens for to trigger a
// graceful shutdown. On Windows, only os.Interrupt (Ctrl+C) is reliably
// delivered; SIGTERM does not exist there.
func gracefulSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
