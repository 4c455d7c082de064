// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - RecordStore: Append-only line-delimited JSON record files
//   - RejectionLog: Audit trail of invalid model responses
//   - PromptStore: Versioned prompt sets
//   - LexiconStore: Fal sentence tables
//   - ConfigStore: Application configuration
//   - LLMService: Text generation. Required by the axis, bayt and repair stages.
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Required only by the embed stage and the fal query.
//   - RunJournal: Stage run history. Without it, runs are not journaled.
//   - MetricsRecorder: Outcome counters. Without it, nothing is exported.
//   - ProgressReporter: Console progress lines. Without it, runs are silent.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
