// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Events cover the pipeline milestones (video ready, video failed,
// operational errors) so handlers can emit consistent messages without
// duplicating HTTP glue.
package notifications
