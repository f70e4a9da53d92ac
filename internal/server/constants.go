// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection control-message rate limit
	RateLimitMessages = 20
	RateLimitWindow   = time.Second

	// Buffered error events pending broadcast
	ErrorChannelBuffer = 50
)
