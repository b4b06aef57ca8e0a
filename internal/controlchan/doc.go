// Package controlchan abstracts the local endpoint an osquery daemon exposes
// for extension RPC.
//
// Two variants exist and are selected at build time: a Unix domain socket on
// Linux and macOS, and a named pipe on Windows. Both provide connect with a
// timeout and a duplex connection whose reads and writes are individually
// time bounded. Only the socket variant leaves a filesystem entry behind, so
// only it has anything to clean up or lock.
package controlchan
