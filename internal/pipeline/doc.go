// Package pipeline orchestrates the end-to-end transcoding flow for one
// video job: acquire the source into a scoped work directory, probe, encode
// the rendition ladder, segment for HLS, upload everything, update the
// video's metadata record and enqueue a best-effort notification. Partial
// variant failure downgrades the outcome to ready-with-fewer-qualities;
// only a total failure (probe, download, or every variant) fails the job.
package pipeline
