// Package main hosts the osqueryctl CLI entrypoint and command graph.
//
// Commands resolve configuration and the socket path once, build a
// client.Handle for the invocation, and render query results as tables or
// JSON. When --spawn is given the command starts its own osqueryd and tears it
// down before exiting.
package main
