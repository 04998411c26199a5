package core

// ArtifactStore persists ephemeral step artifacts. Artifacts are scoped by a
// run identifier so one request can enumerate and delete exactly what it
// created. Save returns an opaque artifact reference (for file backed stores,
// the file path).
type ArtifactStore interface {
	Save(runID string, data []byte) (string, error)
	Get(runID, ref string) ([]byte, error)
	List(runID string) ([]string, error)
	Delete(runID, ref string) error
}
