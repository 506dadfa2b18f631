// Package api exposes the progress tracker over HTTP. It decodes and
// validates requests, calls progress.Service and maps domain and store
// errors to status codes without leaking internal details to clients.
package api
