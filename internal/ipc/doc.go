// Package ipc performs single osquery ExtensionManager calls over a control
// channel.
//
// Every call opens a fresh connection, bounds each read and write by
// CallTimeout, exchanges one Thrift binary message pair, and closes the
// connection. Nothing is pooled or retried, so a failed call leaves no state
// behind for the next one. Failures are returned as *QueryError values
// classified by ErrConnect, ErrTimeout, or ErrProtocol.
package ipc
