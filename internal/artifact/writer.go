// Package artifact implements the C5 incremental artifact writer: it
// persists a best-effort wizard structure after every page save and
// promotes it to a final structure+schema pair on completion
// (spec.md §4.5).
//
// Write-temp-then-atomic-rename is the only mechanism here that is
// not grounded on a teacher/pack library — no example repo in the
// retrieval pack carries a crash-safe file writer, and os.Rename is
// POSIX-atomic within a filesystem, which is exactly the guarantee
// spec.md §5 requires ("a rename-based scheme keeps the on-disk state
// one of {absent, previous version, new version}, never partial
// bytes"). See DESIGN.md.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/structure"
)

// Writer persists partial and final wizard structures under a root
// wizards directory (spec.md §6 on-disk layout).
type Writer struct {
	root      string
	validator *structure.Validator
	log       *zap.Logger
}

// New builds a Writer rooted at wizardsDir.
func New(wizardsDir string, validator *structure.Validator, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{root: wizardsDir, validator: validator, log: log}
}

func (w *Writer) partialPath(sessionID string) string {
	return filepath.Join(w.root, fmt.Sprintf("_partial_%s.json", sessionID))
}

func (w *Writer) structurePath(wizardID string) string {
	return filepath.Join(w.root, "structure-schemas", wizardID+".json")
}

func (w *Writer) schemaPath(wizardID string) string {
	return filepath.Join(w.root, "data-schemas", wizardID+"-schema.json")
}

// WritePartial serializes the session's best-effort structure to
// wizards/_partial_<session_id>.json, replacing any prior version
// atomically (spec.md §4.5).
func (w *Writer) WritePartial(sessionID string, partial *domain.WizardStructure) error {
	return atomicWriteJSON(w.partialPath(sessionID), partial)
}

// DeletePartial removes the session's partial artifact. Missing files
// are not an error — completion may race a concurrent reap.
func (w *Writer) DeletePartial(sessionID string) error {
	err := os.Remove(w.partialPath(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CompletionResult reports the outcome of Complete.
type CompletionResult struct {
	StructurePath string
	Validation    *structure.ValidationReport
}

// Complete runs the spec.md §4.5 completion algorithm: validate the
// assembled structure via C10; on failure, leave the partial in place
// and report warnings; on success, write the final structure file and
// delete the partial.
func (w *Writer) Complete(sessionID string, final *domain.WizardStructure) (*CompletionResult, error) {
	report, err := w.validator.Validate(final)
	if err != nil {
		return nil, err
	}

	if !report.IsComplete {
		w.log.Warn("discovery completion failed structural validation; partial retained",
			zap.String("session_id", sessionID),
			zap.Strings("warnings", report.Warnings),
		)
		return &CompletionResult{Validation: report}, domain.ErrStructureInvalid(report.Summary())
	}

	path := w.structurePath(final.WizardID)
	if err := atomicWriteJSON(path, final); err != nil {
		return nil, err
	}

	if err := w.DeletePartial(sessionID); err != nil {
		w.log.Warn("final structure written but partial cleanup failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	w.log.Info("wizard structure completed",
		zap.String("wizard_id", final.WizardID),
		zap.String("path", path),
	)

	return &CompletionResult{StructurePath: path, Validation: report}, nil
}

// WriteSchema atomically writes a wizard's user-data schema document.
// schemaContent is the raw, already-marshalable schema object.
func (w *Writer) WriteSchema(wizardID string, schemaContent interface{}) (string, error) {
	path := w.schemaPath(wizardID)
	if err := atomicWriteJSON(path, schemaContent); err != nil {
		return "", err
	}
	return path, nil
}

// atomicWriteJSON marshals v and writes it to path via
// write-temp-then-rename, creating parent directories as needed.
func atomicWriteJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
