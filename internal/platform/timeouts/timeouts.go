// Package timeouts defines shared timeout constants used across the console.
// Centralizing these values keeps the HTTP edges and the backend client in step.
package timeouts

import "time"

// BackendRequest caps a single backend API call when no override is configured.
// Text ingestion and AI generation are slow, so this is generous.
const BackendRequest = 120 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// SessionSweep is how often idle console sessions are evicted.
const SessionSweep = time.Minute

// StreamHeartbeat keeps idle patch streams alive through proxies.
const StreamHeartbeat = 20 * time.Second
