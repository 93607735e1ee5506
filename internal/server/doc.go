// Package server exposes snapshots over HTTP and WebSocket.
//
// REST handlers read the snapshot cache, except /api/market-data which asks
// the refresh coordinator for a snapshot no older than the configured max
// age. WebSocket clients are hub subscribers: every published snapshot is
// pushed to them as a marketData message.
package server
