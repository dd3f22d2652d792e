// Package gotify reads notifications from a Gotify server.
//
// Client talks to the REST API (application list), AppNames caches the
// id to name mapping, and Listener follows the /stream websocket and hands
// each message to a handler in arrival order.
package gotify
