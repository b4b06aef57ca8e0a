// Package client provides Handle, the long-lived entry point for querying an
// osquery daemon.
//
// A Handle either attaches to a daemon that is already listening on a socket
// or spawns a private daemon and waits for it. Calls are synchronous and each
// opens its own connection. Close tears down what the Handle created: the
// spawned process and its socket file. An attached Handle leaves the daemon
// and socket untouched.
//
//	h := client.New().WithSocket("/var/osquery/osquery.em")
//	defer h.Close()
//	resp, err := h.Query("select * from time")
package client
