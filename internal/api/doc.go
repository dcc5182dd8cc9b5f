// Package api defines the transport-facing view types for the daemon's HTTP
// endpoints and the read-only queue service behind them.
package api
