// Package videostore is the pipeline's narrow interface to video metadata:
// status transitions, derived media fields and variant URLs. The full video
// schema and its CRUD surface live outside this system.
package videostore
