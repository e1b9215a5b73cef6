// Package history keeps a journal of the state-changing operations performed
// on a game installation: saving the active mod order, patching the
// executable and removing mods.
package history

import "time"

// OperationType represents the type of operation.
type OperationType string

const (
	// OpSave records a write of the mods database.
	OpSave OperationType = "save"
	// OpInstall records a patch install.
	OpInstall OperationType = "install"
	// OpUninstall records a patch uninstall.
	OpUninstall OperationType = "uninstall"
	// OpRemove records the removal of a mod directory.
	OpRemove OperationType = "remove"
)

// Entry represents a single journal entry.
type Entry struct {
	ID        string        `json:"id" yaml:"id"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Operation OperationType `json:"operation" yaml:"operation"`

	// Target is the file or directory the operation acted on.
	Target string `json:"target" yaml:"target"`

	// Mods lists the titles involved. For a save it is the active order.
	Mods []string `json:"mods,omitempty" yaml:"mods,omitempty"`

	// Result is a short outcome such as "applied" or "trashed".
	Result string `json:"result,omitempty" yaml:"result,omitempty"`
}
