package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"samefiles/internal/model"
)

type Group struct {
	Hash   string   `json:"hash"`
	Size   string   `json:"size"`
	Wasted int64    `json:"wasted_bytes"`
	Files  []string `json:"files"`
}

// Report is a point-in-time copy of the grouping, suitable for saving.
type Report struct {
	Generator   string    `json:"generator"`
	Created     time.Time `json:"created"`
	Root        string    `json:"root"`
	Files       int       `json:"files"`
	Wasted      string    `json:"wasted"`
	Fingerprint string    `json:"fingerprint"`
	Groups      []Group   `json:"groups"`
	Unique      []string  `json:"unique"`
}

// Build snapshots the engine. It must run on the goroutine that owns the
// engine (session.Do).
func Build(e *model.Engine, root string) (*Report, error) {
	groups := e.Groups()
	unique := e.Unique()

	fingerprint, err := Fingerprint(groups, unique)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Generator:   "samefiles",
		Created:     time.Now(),
		Root:        root,
		Files:       e.FileCount(),
		Fingerprint: fingerprint,
		Groups:      make([]Group, 0, len(groups)),
		Unique:      make([]string, 0, len(unique)),
	}

	var wasted int64
	for _, g := range groups {
		rg := Group{
			Hash:   g.Hash.String(),
			Wasted: g.Wasted(),
			Files:  make([]string, 0, len(g.Files)),
		}
		if len(g.Files) > 0 {
			rg.Size = humanize.IBytes(uint64(g.Files[0].Size))
		}
		for _, f := range g.Files {
			rg.Files = append(rg.Files, f.Path)
		}
		wasted += rg.Wasted
		r.Groups = append(r.Groups, rg)
	}
	for _, f := range unique {
		r.Unique = append(r.Unique, f.Path)
	}
	r.Wasted = humanize.IBytes(uint64(wasted))

	return r, nil
}

func Save(r *Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &r, nil
}

// Print writes the report in the same shape as the tree view: one block per
// group, then the unique count.
func Print(w io.Writer, r *Report) {
	for _, g := range r.Groups {
		fmt.Fprintf(w, "%d same files (%s each, %s)\n", len(g.Files), g.Size, g.Hash[:16])
		for _, f := range g.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	fmt.Fprintf(w, "%d unique files\n", len(r.Unique))
	fmt.Fprintf(w, "\n  Files: %d\n", r.Files)
	fmt.Fprintf(w, "  Groups: %d\n", len(r.Groups))
	fmt.Fprintf(w, "  Reclaimable: %s\n", r.Wasted)
	fmt.Fprintf(w, "  Fingerprint: %s\n", r.Fingerprint)
}
