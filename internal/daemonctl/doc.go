// Package daemonctl launches a private osqueryd and waits for its extension
// socket to accept connections.
//
// The daemon is started with a fixed flag set that binds it to the requested
// socket and turns off its database, watchdog, logging, and on-disk config.
// Readiness is detected by dialing the socket in a tight loop; the loop has no
// delay and no attempt limit, so only the caller's context can end it early.
package daemonctl
