// Package services holds cross-cutting error classification and context
// annotation helpers shared by pipeline components.
package services
