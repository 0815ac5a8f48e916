package readmemlib

import (
	"github.com/cunev/readmemlib/internal/hostinfo"
	"github.com/cunev/readmemlib/internal/ui"
)

// The interfaces below are the collaborators a host application wires next
// to Memory. Window and keyboard handling live outside this module.

// Window describes one top-level window owned by a process.
type Window struct {
	Title string
	Class string
}

// WindowLister maps processes to their windows and back.
type WindowLister interface {
	Windows(pid int) ([]Window, error)
	PidByTitle(title string) (int, error)
}

// WindowController acts on the windows of a process.
type WindowController interface {
	SetInputEnabled(pid int, enabled bool) error
	Resize(pid int, width, height int) error
	Raise(pid int) error
}

// Dialog presents a message and returns what the user typed. ok is false
// when the user dismissed it.
type Dialog interface {
	Prompt(title, message string) (input string, ok bool, err error)
}

// MachineIdentity returns a stable opaque identifier of the machine, or ""
// when firmware identifiers are unreadable.
type MachineIdentity interface {
	MachineID() string
}

var (
	_ Dialog          = ui.Dialog{}
	_ MachineIdentity = hostinfo.DMI{}
)
