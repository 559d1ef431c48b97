// Package httpserver wraps net/http.Server with address validation, explicit
// listen/serve phases and a bounded graceful shutdown. It also holds the JSON
// response helpers shared by the handlers.
package httpserver
