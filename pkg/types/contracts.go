package types

import "io/fs"

// FileSystem is the file access cursorbox needs from its host.
// WriteFile must replace the target atomically. Stat reports a missing
// file with an error wrapping fs.ErrNotExist.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Stat(path string) (fs.FileInfo, error)
}

// CursorSink installs an image as a named system cursor. Implementations
// own the platform mechanics; cursorbox only supplies the bytes.
type CursorSink interface {
	ApplyCursor(slot string, image []byte, hotspot Hotspot, size int) error
}

// LibraryEventKind says what kind of change a LibraryEvent reports.
type LibraryEventKind string

const (
	EventAdded     LibraryEventKind = "added"
	EventRemoved   LibraryEventKind = "removed"
	EventUpdated   LibraryEventKind = "updated"
	EventReordered LibraryEventKind = "reordered"
	EventSynced    LibraryEventKind = "synced"
)

// LibraryEvent is delivered after the library index was saved.
type LibraryEvent struct {
	Kind LibraryEventKind `json:"kind"`
	IDs  []string         `json:"ids,omitempty"`
}

// EventSink is notified of library changes.
type EventSink interface {
	LibraryChanged(ev LibraryEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(LibraryEvent)

// LibraryChanged calls f(ev).
func (f EventSinkFunc) LibraryChanged(ev LibraryEvent) { f(ev) }
