// sculpt is a CLI for building and editing regionized terrains.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
	"github.com/Faultbox/midgard-terrain/pkg/raster"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "init":
		err = cmdInit(args)
	case "info":
		err = cmdInfo(args)
	case "apply":
		err = cmdApply(args)
	case "export":
		err = cmdExport(args)
	case "import":
		err = cmdImport(args)
	case "stamps":
		err = cmdStamps(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sculpt - terrain sculpting and painting utility

Usage:
  sculpt <command> [options]

Commands:
  init                               Create an empty terrain in the store
  info                               Show terrain information
  apply <script.yaml>                Run a stroke script against the terrain
  export <dir>                       Write region layers as PNG images
  import <image> <ox> <oy> [scale]   Load a heightmap into one region
  stamps                             List available brush stamps
  config [-save] [-o file]           Print or save the effective config

Common options:
  -config <file>    Config file (default ./sculpt.yaml)
  -store <dir>      Terrain database directory
  -brushes <dir>    Extra brush stamp directory
  -metrics <addr>   Serve Prometheus metrics while running
  -seed <n>         Fixed jitter seed
  -debug            Debug logging

Examples:
  sculpt init -size 256 -spacing 1
  sculpt apply strokes.yaml
  sculpt export ./out
  sculpt import heightmap.png 0 0 50`)
}

// parse registers the shared options on fs, parses args and loads the config.
func parse(fs *flag.FlagSet, args []string) (*config.Config, error) {
	flags := config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config.Load(flags)
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	size := fs.Int("size", 0, "Region size in vertices (power of two)")
	spacing := fs.Float64("spacing", 0, "Vertex spacing in world units")
	maxRegions := fs.Int("max", -1, "Maximum region count (0 = no limit)")
	force := fs.Bool("force", false, "Replace an existing terrain")
	cfg, err := parse(fs, args)
	if err != nil {
		return err
	}
	if *size > 0 {
		cfg.Terrain.RegionSize = *size
	}
	if *spacing > 0 {
		cfg.Terrain.VertexSpacing = float32(*spacing)
	}
	if *maxRegions >= 0 {
		cfg.Terrain.MaxRegions = *maxRegions
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store.LoadTerrain(); err == nil && !*force {
		return errors.New("store already holds a terrain, use -force to replace it")
	} else if err != nil && !errors.Is(err, storage.ErrNoTerrain) && !*force {
		return err
	}

	t, err := terrain.New(cfg.Terrain.RegionSize, cfg.Terrain.VertexSpacing, cfg.Terrain.MaxRegions)
	if err != nil {
		return err
	}
	if err := a.store.SaveTerrain(t); err != nil {
		return err
	}
	fmt.Printf("Created terrain: region size %d, spacing %g, capacity %d\n",
		t.RegionSize, t.VertexSpacing, t.Regions.Capacity())
	return nil
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfg, err := parse(fs, args)
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.store.LoadTerrain()
	if err != nil {
		return err
	}
	lo, hi := t.Regions.HeightRange()

	fmt.Printf("Store:        %s\n", cfg.Storage.Path)
	fmt.Printf("Region size:  %d\n", t.RegionSize)
	fmt.Printf("Spacing:      %g\n", t.VertexSpacing)
	fmt.Printf("World stride: %g\n", t.Stride())
	fmt.Printf("Regions:      %d / %d\n", t.Regions.Len(), t.Regions.Capacity())
	fmt.Printf("Height range: %g .. %g\n", lo, hi)
	if refs, dangling := controlRefs(t); refs > 0 {
		fmt.Printf("Region refs:  %d (%d dangling)\n", refs, dangling)
	}
	if t.Regions.Len() == 0 {
		return nil
	}
	fmt.Println()
	fmt.Println("Regions:")

	regions := t.Regions.Regions()
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Offset.Less(regions[j].Offset)
	})
	for _, r := range regions {
		rlo, rhi := r.HeightRange()
		fmt.Printf("  %-12s id %-5d height %g .. %g\n", r.Offset, r.ID, rlo, rhi)
	}
	return nil
}

// controlRefs counts control words carrying a region reference and those
// whose region no longer exists.
func controlRefs(t *terrain.Terrain) (refs, dangling int) {
	for _, r := range t.Regions.Regions() {
		size := r.Control.Size()
		for y := range size {
			for x := range size {
				ref := raster.ControlRef(r.Control.Control(x, y))
				if ref == 0 {
					continue
				}
				refs++
				if t.Regions.Resolve(ref) == nil {
					dangling++
				}
			}
		}
	}
	return refs, dangling
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfg, err := parse(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: sculpt export <dir>")
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.store.LoadTerrain()
	if err != nil {
		return err
	}
	n, err := exportTerrain(t, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d images to %s\n", n, fs.Arg(0))
	return nil
}

// exportTerrain writes height, color and control images per region. Heights
// are normalized to the terrain's height range.
func exportTerrain(t *terrain.Terrain, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	lo, hi := t.Regions.HeightRange()
	n := 0
	for _, r := range t.Regions.Regions() {
		base := fmt.Sprintf("region_%d_%d", r.Offset.X, r.Offset.Y)
		images := map[string]image.Image{
			base + "_height.png":  r.Height.HeightImage(lo, hi),
			base + "_color.png":   r.Color.ColorImage(),
			base + "_control.png": r.Control.ControlImage(),
		}
		for name, img := range images {
			if err := writePNG(filepath.Join(dir, name), img); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfg, err := parse(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 3 {
		return errors.New("usage: sculpt import <image> <ox> <oy> [scale]")
	}
	ox, errX := strconv.Atoi(fs.Arg(1))
	oy, errY := strconv.Atoi(fs.Arg(2))
	if errX != nil || errY != nil {
		return fmt.Errorf("invalid region offset %q %q", fs.Arg(1), fs.Arg(2))
	}
	scale := float32(1)
	if fs.NArg() > 3 {
		s, err := strconv.ParseFloat(fs.Arg(3), 32)
		if err != nil {
			return fmt.Errorf("invalid scale %q: %w", fs.Arg(3), err)
		}
		scale = float32(s)
	}

	img, err := readImage(fs.Arg(0))
	if err != nil {
		return err
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.store.LoadTerrain()
	if err != nil {
		return err
	}
	off := math.Vec2i{X: ox, Y: oy}
	r, err := importHeight(t, off, img, scale)
	if err != nil {
		return err
	}
	if err := a.store.SaveRegions(t, []math.Vec2i{off}); err != nil {
		return err
	}
	lo, hi := r.HeightRange()
	fmt.Printf("Imported %s into region %s (height %g .. %g)\n", fs.Arg(0), r.Offset, lo, hi)
	return nil
}

// importHeight creates the region at off if needed and replaces its heights.
func importHeight(t *terrain.Terrain, off math.Vec2i, img image.Image, scale float32) (*terrain.Region, error) {
	r, _, err := t.Regions.Create(off)
	if err != nil {
		return nil, err
	}
	r.Height.ImportHeight(img, scale)
	t.Regions.RecalculateHeightRange()
	return r, nil
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func cmdStamps(args []string) error {
	fs := flag.NewFlagSet("stamps", flag.ExitOnError)
	cfg, err := parse(fs, args)
	if err != nil {
		return err
	}
	lib, err := newLibrary(cfg)
	if err != nil {
		return err
	}
	names, err := lib.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		s, err := lib.Load(name)
		if err != nil {
			fmt.Printf("  %-20s error: %v\n", name, err)
			continue
		}
		fmt.Printf("  %-20s %dx%d\n", name, s.Size(), s.Size())
	}
	return nil
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Write to the user config directory")
	out := fs.String("o", "", "Write to this file")
	cfg, err := parse(fs, args)
	if err != nil {
		return err
	}
	switch {
	case *out != "":
		if err := cfg.SaveTo(*out); err != nil {
			return err
		}
		fmt.Printf("Saved config to %s\n", *out)
	case *save:
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved config to %s\n", filepath.Join(config.ConfigDir(), "sculpt.yaml"))
	default:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	}
	return nil
}
