// Package api is the HTTP host driver. It starts, binds and commands the
// services the way a client application would, validates requests, and maps
// service errors to status codes with safe messages.
package api
