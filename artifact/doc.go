// Package artifact contains core.ArtifactStore implementations used to hold
// intermediate step results while a request is being handled.
//
// FileStore writes each artifact to <dir>/<uuid>.txt; InMemoryStore keeps
// them in process. Both scope artifacts by run identifier so the orchestrator
// can delete exactly what one request created.
package artifact
