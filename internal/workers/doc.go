// Package workers runs the job-processing loops: per-queue worker slots
// claiming from the durable queue, per-job heartbeats, and a maintenance
// loop handling delayed promotion, stale reclaim and history pruning.
package workers
