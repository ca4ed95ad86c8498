package vision

import (
	"fmt"
	"image"
	_ "image/png" // Register PNG decoder for image.Decode
	"os"
	"path/filepath"
	"sort"
)

// Variant is one preprocessed reference image of an entity. The sums are
// precomputed so correlation against a frame only has to accumulate the
// frame side.
type Variant struct {
	Name string
	Gray *image.Gray
	W, H int

	sum   float64
	sumSq float64
}

// TemplateEntry groups all reference variants for one entity name.
type TemplateEntry struct {
	Name      string
	Variants  []Variant
	Threshold float64
}

// Library is the read-only template cache, loaded once at startup. Safe
// for concurrent reads after Load returns; reloading means calling Load
// again and swapping the result.
type Library struct {
	entries  map[string]*TemplateEntry
	names    []string
	warnings int
}

// WarnFunc receives non-fatal loading problems: a corrupt image or an
// entity directory with nothing usable inside.
type WarnFunc func(entity, path string, err error)

// Load discovers one subdirectory per entity under root and loads every
// PNG inside as a reference variant. A corrupt image or an empty entity
// directory produces a warning, never a failure.
func Load(root string, defaultThreshold float64, thresholds map[string]float64, warn WarnFunc) (*Library, error) {
	if warn == nil {
		warn = func(string, string, error) {}
	}

	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read template root: %w", err)
	}

	lib := &Library{entries: make(map[string]*TemplateEntry)}

	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		name := d.Name()

		files, err := filepath.Glob(filepath.Join(root, name, "*.png"))
		if err != nil {
			warn(name, filepath.Join(root, name), err)
			lib.warnings++
			continue
		}
		sort.Strings(files)

		entry := &TemplateEntry{Name: name, Threshold: defaultThreshold}
		if thr, ok := thresholds[name]; ok {
			entry.Threshold = thr
		}

		for _, file := range files {
			img, err := loadImage(file)
			if err != nil {
				warn(name, file, err)
				lib.warnings++
				continue
			}
			entry.Variants = append(entry.Variants, newVariant(filepath.Base(file), img))
		}

		if len(entry.Variants) == 0 {
			warn(name, filepath.Join(root, name), fmt.Errorf("no usable reference images"))
			lib.warnings++
			continue
		}

		lib.entries[name] = entry
		lib.names = append(lib.names, name)
	}

	sort.Strings(lib.names)
	return lib, nil
}

// Names returns entity names in sorted order.
func (l *Library) Names() []string {
	return l.names
}

// Get returns the entry for an entity name.
func (l *Library) Get(name string) (*TemplateEntry, bool) {
	e, ok := l.entries[name]
	return e, ok
}

// Len reports how many entities loaded successfully.
func (l *Library) Len() int {
	return len(l.entries)
}

// Warnings reports how many loading problems were absorbed.
func (l *Library) Warnings() int {
	return l.warnings
}

func newVariant(name string, img image.Image) Variant {
	gray := toGray(img)
	v := Variant{
		Name: name,
		Gray: gray,
		W:    gray.Rect.Dx(),
		H:    gray.Rect.Dy(),
	}
	for _, px := range gray.Pix {
		p := float64(px)
		v.sum += p
		v.sumSq += p * p
	}
	return v
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
