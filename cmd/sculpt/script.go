package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-terrain/internal/assets"
	"github.com/Faultbox/midgard-terrain/internal/brush"
	"github.com/Faultbox/midgard-terrain/internal/editor"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// Script is a list of strokes applied in order.
//
//	strokes:
//	  - tool: height
//	    operation: add
//	    stamp: circle
//	    brush: {size: 32, height: 4, opacity: 0.5, auto_regions: true}
//	    continuous: true
//	    points: [[0, 0, 0], [8, 0, 0], [16, 0, 0]]
//	  - undo: 1
type Script struct {
	Strokes []Step `yaml:"strokes"`
}

// Step is one stroke. Unset fields keep the previous step's values; brush
// options are merged over the previous brush.
type Step struct {
	Tool       *editor.Tool      `yaml:"tool"`
	Operation  *editor.Operation `yaml:"operation"`
	Stamp      string            `yaml:"stamp"`
	Brush      yaml.Node         `yaml:"brush"`
	Interval   *float32          `yaml:"interval"`
	Camera     float32           `yaml:"camera"`
	Continuous bool              `yaml:"continuous"`
	Points     [][3]float32      `yaml:"points"`
	Undo       int               `yaml:"undo"`
	Redo       int               `yaml:"redo"`
}

// loadScript reads a stroke script. Unknown keys are rejected.
func loadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Script
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &s, nil
}

// runner applies script steps to an editor.
type runner struct {
	ed        *editor.Editor
	lib       *assets.Library
	log       *zap.Logger
	opts      brush.Options
	stampName string
	strokes   int
	skipped   int
}

func newRunner(ed *editor.Editor, lib *assets.Library, log *zap.Logger) *runner {
	return &runner{
		ed:        ed,
		lib:       lib,
		log:       log,
		opts:      brush.DefaultOptions(),
		stampName: assets.StampCircle,
	}
}

func (r *runner) run(s *Script) error {
	for i := range s.Strokes {
		if err := r.step(&s.Strokes[i]); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *runner) step(st *Step) error {
	if st.Tool != nil {
		r.ed.SetTool(*st.Tool)
	}
	if st.Operation != nil {
		r.ed.SetOperation(*st.Operation)
	}
	if st.Interval != nil {
		r.ed.SetOperationInterval(*st.Interval)
	}

	brushChanged := r.ed.Brush() == nil
	if st.Stamp != "" {
		r.stampName = st.Stamp
		brushChanged = true
	}
	if !st.Brush.IsZero() {
		if err := st.Brush.Decode(&r.opts); err != nil {
			return fmt.Errorf("brush: %w", err)
		}
		brushChanged = true
	}
	if brushChanged {
		if err := r.configureBrush(); err != nil {
			return err
		}
	}

	if len(st.Points) > 0 {
		for i, p := range st.Points {
			pos := math.Vec3{X: p[0], Y: p[1], Z: p[2]}
			if err := r.ed.Operate(pos, st.Camera, i > 0 && st.Continuous); err != nil {
				return err
			}
		}
		entry, err := r.ed.StoreUndo()
		if err != nil && !errors.Is(err, editor.ErrUndoUnavailable) {
			return err
		}
		if entry == nil {
			r.skipped++
		} else {
			r.strokes++
			r.log.Debug("stroke stored", zap.Stringer("entry", entry.ID), zap.Int("regions", len(entry.Offsets())),
				zap.Int64("bytes", entry.Size()))
		}
	}

	for range st.Undo {
		if _, err := r.ed.Undo(); err != nil {
			return err
		}
	}
	for range st.Redo {
		if _, err := r.ed.Redo(); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) configureBrush() error {
	stamp, err := r.lib.Load(r.stampName)
	if err != nil {
		return err
	}
	r.opts.Stamp = stamp
	adj, err := r.ed.SetBrushData(r.opts)
	if err != nil {
		return err
	}
	for _, a := range adj {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", a)
	}
	return nil
}

// reload re-reads the current stamp after its file changed.
func (r *runner) reload(name string) {
	if name != r.stampName || r.ed.Brush() == nil {
		return
	}
	if _, err := r.lib.Reload(name); err != nil {
		r.log.Warn("stamp reload failed", zap.String("stamp", name), zap.Error(err))
		return
	}
	if err := r.configureBrush(); err != nil {
		r.log.Warn("stamp reload failed", zap.String("stamp", name), zap.Error(err))
		return
	}
	r.log.Info("stamp reloaded", zap.String("stamp", name))
}

// drain applies pending watcher events without blocking.
func (r *runner) drain(w *assets.Watcher) {
	for {
		select {
		case name, ok := <-w.Events:
			if !ok {
				return
			}
			r.reload(name)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Warn("stamp watcher", zap.Error(err))
		default:
			return
		}
	}
}

func cmdApply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	exportDir := fs.String("export", "", "Also export PNG images to this directory")
	dryRun := fs.Bool("n", false, "Run the script without saving")
	cfg, err := parse(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: sculpt apply <script.yaml>")
	}
	script, err := loadScript(fs.Arg(0))
	if err != nil {
		return err
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	lib, err := newLibrary(cfg)
	if err != nil {
		return err
	}

	t, err := a.store.LoadTerrain()
	if errors.Is(err, storage.ErrNoTerrain) && cfg.Storage.InMemory {
		t, err = terrain.New(cfg.Terrain.RegionSize, cfg.Terrain.VertexSpacing, cfg.Terrain.MaxRegions)
	}
	if err != nil {
		return err
	}

	ed, host := a.newEditor()
	ed.SetTerrain(t)
	r := newRunner(ed, lib, a.log)

	if cfg.Brushes.Watch && len(lib.Dirs()) > 0 {
		w, err := lib.Watch()
		if err != nil {
			return err
		}
		defer w.Close()
		for i := range script.Strokes {
			r.drain(w)
			if err := r.step(&script.Strokes[i]); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	} else if err := r.run(script); err != nil {
		return err
	}

	undo, redo := ed.History()
	fmt.Printf("Applied %d strokes (%d without changes), history %d undo / %d redo, %d regions\n",
		r.strokes, r.skipped, undo, redo, t.Regions.Len())

	if !*dryRun {
		if err := a.store.SaveRegions(t, host.Changed()); err != nil {
			return err
		}
	}
	if *exportDir != "" {
		n, err := exportTerrain(t, *exportDir)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d images to %s\n", n, *exportDir)
	}
	return nil
}
