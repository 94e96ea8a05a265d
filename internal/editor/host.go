package editor

import (
	"time"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// Change names one region layer modified by a stroke, undo or redo.
type Change struct {
	Offset math.Vec2i
	Layer  terrain.LayerKind
}

// Status is a message on the host's status channel.
type Status struct {
	Kind    Kind
	Message string
}

// Host receives notifications from the editor. Calls happen on the editing
// goroutine.
type Host interface {
	RegionsChanged(changes []Change)
	Status(s Status)
}

type nopHost struct{}

func (nopHost) RegionsChanged([]Change) {}
func (nopHost) Status(Status)           {}

// Recorder receives editor measurements. internal/metrics provides a
// Prometheus implementation.
type Recorder interface {
	Operation(tool Tool, op Operation, applied bool, d time.Duration)
	StrokeCommitted(journaled bool, bytes int64)
	RegionsCreated(n int)
	RegionsDeleted(n int)
	History(entries int, bytes int64)
	Restored(redo bool)
}

type nopRecorder struct{}

func (nopRecorder) Operation(Tool, Operation, bool, time.Duration) {}
func (nopRecorder) StrokeCommitted(bool, int64)                    {}
func (nopRecorder) RegionsCreated(int)                             {}
func (nopRecorder) RegionsDeleted(int)                             {}
func (nopRecorder) History(int, int64)                             {}
func (nopRecorder) Restored(bool)                                  {}
