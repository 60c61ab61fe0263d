// Package pipeline drives one remote media file through its whole lifecycle
// per run: discover, fetch and verify, convert, decide, upload and verify or
// archive, then clean up. Run repeats that until a run fails, including
// when the ingest folder is empty; restarting the process is the supervisor's job.
//
// Files:
//   - orchestrator.go: Orchestrator, RunOnce, Run and the per-stage steps.
//   - discover.go: listing and selection of the next file.
//   - disposition.go: the size rule choosing upload or archive.
//   - errors.go: stages, sentinel errors and RunError.
//   - stats.go: counters kept across runs.
package pipeline
