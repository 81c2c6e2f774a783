// Package handlers implements the HTTP endpoints of the proxy: the
// chat-completion pipeline, the static model catalog, and the health probes.
package handlers
