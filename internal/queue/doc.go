// Package queue implements the durable job queue backing the transcoding
// pipeline. Jobs are persisted in SQLite so that queued and in-flight work
// survives daemon restarts; workers claim jobs transactionally, report
// heartbeats while running, and failed jobs are retried with backoff until
// their attempt budget is exhausted.
package queue
