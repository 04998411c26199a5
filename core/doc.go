// Package core provides the shared domain types and small interfaces used
// across Pipegent. It defines:
//
//   - Message, the role-tagged unit exchanged with models and persisted as
//     context history
//   - ToolContext, the scoped surface handed to plugin functions
//   - CallLimiter, the counter enforcing per-instruction model/tool bounds
//   - HistoryStore and ArtifactStore, the persistence contracts implemented
//     by the memory and artifact packages
//
// Implementation concerns (file formats, providers, orchestration) live in
// their own packages so alternative backends can be swapped in without
// touching callers.
package core
