// Package daemon runs the long-lived process: it holds the single-instance
// lock, drives the worker pool, and serves the read-only HTTP API.
package daemon
