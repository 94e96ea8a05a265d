// Package editor sculpts and paints a regionized terrain. It applies a brush
// at world positions, creates and deletes regions, and journals each stroke
// for undo and redo.
//
// An Editor is not safe for concurrent use. The host serializes calls and
// reads layer data only between them.
package editor

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/brush"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// Config holds editor tuning.
type Config struct {
	HistorySize       int           // strokes kept for undo
	JournalBudget     int64         // bytes of snapshots kept across undo and redo
	StrokeTimeout     time.Duration // inactivity that ends a stroke
	OperationInterval float32       // world distance between continuous stamps
	CompressSnapshots bool
}

// DefaultConfig returns the default editor tuning.
func DefaultConfig() Config {
	return Config{
		HistorySize:   16,
		JournalBudget: 256 << 20,
		StrokeTimeout: 500 * time.Millisecond,
	}
}

// Option configures an Editor.
type Option func(*Editor)

// WithConfig replaces the default tuning.
func WithConfig(cfg Config) Option {
	return func(e *Editor) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger. Defaults to the "editor" child of the global logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Editor) {
		e.log = log
	}
}

// WithHost sets the notification sink.
func WithHost(h Host) Option {
	return func(e *Editor) {
		e.host = h
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Editor) {
		e.metrics = r
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		e.now = now
	}
}

// WithSeed fixes the jitter seed of every stroke. Without it each stroke is
// seeded from its start time.
func WithSeed(seed uint64) Option {
	return func(e *Editor) {
		e.seed = seed
		e.fixedSeed = true
	}
}

// Editor is the operation engine.
type Editor struct {
	cfg       Config
	log       *zap.Logger
	host      Host
	metrics   Recorder
	now       func() time.Time
	seed      uint64
	fixedSeed bool

	terrain *terrain.Terrain
	brush   *brush.Brush
	tool    Tool
	op      Operation

	operationPosition math.Vec3
	lastActivity      time.Time

	stroke  *stroke
	journal *journal
}

// New creates an editor with the Region tool and Add operation selected.
func New(opts ...Option) *Editor {
	e := &Editor{
		cfg:     DefaultConfig(),
		host:    nopHost{},
		metrics: nopRecorder{},
		now:     time.Now,
		tool:    ToolRegion,
		op:      OpAdd,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Named("editor")
	}
	if e.cfg.HistorySize <= 0 {
		e.cfg.HistorySize = DefaultConfig().HistorySize
	}
	e.journal = newJournal(e.cfg.HistorySize, e.cfg.JournalBudget)
	return e
}

// SetTerrain supplies the terrain to edit. An active stroke is committed
// against the previous terrain and the history is cleared.
func (e *Editor) SetTerrain(t *terrain.Terrain) {
	if e.stroke != nil {
		e.commit()
	}
	e.terrain = t
	e.journal.clear()
	e.metrics.History(0, 0)
	if t != nil {
		e.log.Info("terrain set",
			zap.Int("regionSize", t.RegionSize),
			zap.Float32("vertexSpacing", t.VertexSpacing),
			zap.Int("regions", t.Regions.Len()))
	}
}

// Terrain returns the terrain being edited.
func (e *Editor) Terrain() *terrain.Terrain {
	return e.terrain
}

// SetBrushData configures the brush. Out-of-range values are clamped and
// reported to the host as InvalidParameter warnings.
func (e *Editor) SetBrushData(opts brush.Options) ([]brush.Adjustment, error) {
	b, adj, err := brush.Configure(opts)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidParameter, err)
		e.report(err)
		return nil, err
	}
	for _, a := range adj {
		e.log.Warn("brush parameter clamped",
			zap.String("field", a.Field), zap.Float64("from", a.From), zap.Float64("to", a.To))
		e.host.Status(Status{Kind: KindInvalidParameter, Message: a.String()})
	}
	e.brush = b
	return adj, nil
}

// Brush returns the configured brush, or nil.
func (e *Editor) Brush() *brush.Brush {
	return e.brush
}

func (e *Editor) SetTool(t Tool) {
	e.tool = t
}

func (e *Editor) Tool() Tool {
	return e.tool
}

func (e *Editor) SetOperation(op Operation) {
	e.op = op
}

func (e *Editor) Operation() Operation {
	return e.op
}

// SetOperationInterval sets the world distance continuous stamps must travel
// before the next one applies.
func (e *Editor) SetOperationInterval(d float32) {
	e.cfg.OperationInterval = max(0, d)
}

// OperationPosition returns the position of the last applied operation.
func (e *Editor) OperationPosition() math.Vec3 {
	return e.operationPosition
}

// Stroking reports whether a stroke is active.
func (e *Editor) Stroking() bool {
	return e.stroke != nil
}

// Operate applies the current tool at pos. cameraAngle is the yaw used when
// the brush is aligned to the view. A non-continuous call, or one arriving
// after the stroke timeout, ends the active stroke and starts a new one.
// Continuous calls closer than the operation interval to the last applied
// position are skipped.
func (e *Editor) Operate(pos math.Vec3, cameraAngle float32, continuous bool) error {
	if e.terrain == nil {
		e.report(ErrNoTerrain)
		return ErrNoTerrain
	}
	if e.brush == nil {
		err := fmt.Errorf("%w: brush not configured", ErrInvalidParameter)
		e.report(err)
		return err
	}
	if e.tool >= ToolCount || e.op >= OperationCount {
		err := fmt.Errorf("%w: tool %v operation %v", ErrInvalidParameter, e.tool, e.op)
		e.report(err)
		return err
	}

	now := e.now()
	if e.stroke != nil && (!continuous || e.timedOut(now)) {
		e.commit()
	}
	if e.stroke == nil {
		e.begin(now)
	}
	e.lastActivity = now

	if continuous && e.stroke.stamped && e.operationPosition.Distance(pos) < e.cfg.OperationInterval {
		e.metrics.Operation(e.tool, e.op, false, 0)
		return nil
	}
	e.stroke.stamped = true
	e.operationPosition = pos

	start := time.Now()
	var err error
	if e.tool == ToolRegion {
		err = e.operateRegion(pos)
	} else {
		err = e.operateMap(pos, cameraAngle)
	}
	e.metrics.Operation(e.tool, e.op, true, time.Since(start))
	if err != nil {
		e.report(err)
	}
	return err
}

// SetupUndo starts a new stroke, committing any active one.
func (e *Editor) SetupUndo() error {
	if e.terrain == nil {
		e.report(ErrNoTerrain)
		return ErrNoTerrain
	}
	if e.stroke != nil {
		e.commit()
	}
	e.begin(e.now())
	return nil
}

// StoreUndo ends the active stroke and returns its journal entry. It returns
// nil when no stroke is active or the stroke changed nothing. If the entry
// does not fit the journal budget, the stroke stays applied, the entry is
// returned and the error wraps ErrUndoUnavailable.
func (e *Editor) StoreUndo() (*Entry, error) {
	if e.stroke == nil {
		return nil, nil
	}
	return e.commit()
}

// CommitIfIdle ends the active stroke when it has been inactive longer than
// the stroke timeout. It reports whether a stroke was committed.
func (e *Editor) CommitIfIdle() bool {
	if e.stroke == nil || !e.timedOut(e.now()) {
		return false
	}
	e.commit()
	return true
}

func (e *Editor) timedOut(now time.Time) bool {
	return e.cfg.StrokeTimeout > 0 && now.Sub(e.lastActivity) > e.cfg.StrokeTimeout
}

func (e *Editor) begin(now time.Time) {
	seed := e.seed
	if !e.fixedSeed {
		seed = uint64(now.UnixNano())
	}
	e.stroke = newStroke(e.tool, e.op, now, e.terrain.Regions, seed, e.cfg.CompressSnapshots)
	e.lastActivity = now
}

// commit finishes the active stroke, journals it and notifies the host.
func (e *Editor) commit() (*Entry, error) {
	s := e.stroke
	e.stroke = nil
	if s.empty() {
		return nil, nil
	}

	entry, err := s.finish(e.terrain.Regions)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUndoUnavailable, err)
		e.report(err)
		e.notify(s.changeList())
		return nil, err
	}

	if jerr := e.journal.push(entry); jerr != nil {
		e.metrics.StrokeCommitted(false, entry.Size())
		e.report(jerr)
		err = jerr
	} else {
		e.metrics.StrokeCommitted(true, entry.Size())
	}
	e.metrics.History(e.journal.len(), e.journal.bytes)
	e.log.Debug("stroke committed",
		zap.Stringer("entry", entry.ID),
		zap.Stringer("tool", entry.Tool),
		zap.Stringer("operation", entry.Operation),
		zap.Int("regions", len(entry.Before.Regions)),
		zap.Int64("bytes", entry.Size()))
	e.notify(s.changeList())
	return entry, err
}

// Undo reverts the most recent journaled stroke, committing any active one
// first. It returns the reverted entry, or nil when history is empty.
func (e *Editor) Undo() (*Entry, error) {
	if e.stroke != nil {
		e.commit()
	}
	entry := e.journal.peekUndo()
	if entry == nil {
		return nil, nil
	}
	if err := e.ApplyUndo(entry); err != nil {
		return nil, err
	}
	e.journal.undone()
	e.metrics.History(e.journal.len(), e.journal.bytes)
	return entry, nil
}

// Redo reapplies the most recently undone stroke.
func (e *Editor) Redo() (*Entry, error) {
	if e.stroke != nil {
		e.commit()
	}
	entry := e.journal.peekRedo()
	if entry == nil {
		return nil, nil
	}
	if err := e.ApplyRedo(entry); err != nil {
		return nil, err
	}
	e.journal.redone()
	e.metrics.History(e.journal.len(), e.journal.bytes)
	return entry, nil
}

// ApplyUndo restores the state captured before entry's stroke. It does not
// touch the editor's own history.
func (e *Editor) ApplyUndo(entry *Entry) error {
	return e.apply(entry, false)
}

// ApplyRedo restores the state captured after entry's stroke.
func (e *Editor) ApplyRedo(entry *Entry) error {
	return e.apply(entry, true)
}

func (e *Editor) apply(entry *Entry, redo bool) error {
	if e.terrain == nil {
		e.report(ErrNoTerrain)
		return ErrNoTerrain
	}
	if entry == nil {
		return fmt.Errorf("%w: nil journal entry", ErrInvalidParameter)
	}
	if e.stroke != nil {
		e.commit()
	}
	state := entry.Before
	if redo {
		state = entry.After
	}
	if err := restore(e.terrain.Regions, state); err != nil {
		e.report(err)
		return err
	}
	e.metrics.Restored(redo)
	e.log.Debug("journal entry applied", zap.Stringer("entry", entry.ID), zap.Bool("redo", redo))

	var changes []Change
	for _, off := range entry.Offsets() {
		changes = appendRegionChanges(changes, off)
	}
	e.notify(changes)
	return nil
}

// History returns the number of strokes available to Undo and Redo.
func (e *Editor) History() (undo, redo int) {
	return len(e.journal.history), len(e.journal.redo)
}

func (e *Editor) notify(changes []Change) {
	if len(changes) > 0 {
		e.host.RegionsChanged(changes)
	}
}

func (e *Editor) report(err error) {
	kind := KindOf(err)
	switch kind {
	case KindInternalConsistency, KindNone:
		e.log.Error("editor error", zap.Error(err))
	default:
		e.log.Warn("editor error", zap.Stringer("kind", kind), zap.Error(err))
	}
	e.host.Status(Status{Kind: kind, Message: err.Error()})
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func regionError(err error) error {
	if errors.Is(err, terrain.ErrCapacityExceeded) {
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	}
	return fmt.Errorf("%w: %w", ErrInternalConsistency, err)
}
