package userdata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TagIndex is the set of template paths declared as tag nodes. Template
// paths may contain Wildcard at positions where any instance name is
// accepted. A nil *TagIndex is empty.
type TagIndex struct {
	byLen map[int][]Path
	seen  map[string]struct{}
}

// NewTagIndex returns an index holding paths.
func NewTagIndex(paths ...Path) *TagIndex {
	idx := &TagIndex{byLen: make(map[int][]Path), seen: make(map[string]struct{})}
	for _, p := range paths {
		idx.add(p)
	}
	return idx
}

func (idx *TagIndex) add(p Path) {
	if len(p) == 0 {
		return
	}
	key := strings.Join(p, "\x00")
	if _, ok := idx.seen[key]; ok {
		return
	}
	idx.seen[key] = struct{}{}
	idx.byLen[len(p)] = append(idx.byLen[len(p)], append(Path(nil), p...))
}

// Len returns the number of template paths in the index.
func (idx *TagIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.seen)
}

// Match reports whether p is a tag node: some template path has the same
// length and, at every position, either the same segment or Wildcard.
func (idx *TagIndex) Match(p Path) bool {
	if idx == nil {
		return false
	}
	for _, tmpl := range idx.byLen[len(p)] {
		if matchTemplate(tmpl, p) {
			return true
		}
	}
	return false
}

func matchTemplate(tmpl, p Path) bool {
	for i := range p {
		if tmpl[i] != p[i] && tmpl[i] != Wildcard {
			return false
		}
	}
	return true
}

// LoadTagIndex walks the template tree under root and indexes the parent
// directory of every entry named Wildcard. When root cannot be read the
// returned index is empty; unreadable subtrees are skipped and reported in
// the returned error together with whatever was indexed.
func LoadTagIndex(root string) (*TagIndex, error) {
	idx := NewTagIndex()
	if _, err := os.Stat(root); err != nil {
		return idx, fmt.Errorf("%w: %w", ErrTemplateScan, err)
	}

	var skipped []error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			skipped = append(skipped, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() != Wildcard || path == root {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			skipped = append(skipped, err)
			return nil
		}
		if rel != "." {
			idx.add(Path(strings.Split(rel, string(filepath.Separator))))
		}
		return nil
	})
	if err != nil {
		return NewTagIndex(), fmt.Errorf("%w: %w", ErrTemplateScan, err)
	}
	if len(skipped) > 0 {
		return idx, fmt.Errorf("%w: %w", ErrTemplateScan, errors.Join(skipped...))
	}
	return idx, nil
}

// Tagger marks nodes of a configuration as tag nodes.
type Tagger interface {
	SetTag(path []string) error
}

// MarkTags calls t.SetTag for every prefix of p that idx reports as a tag
// node, shortest first, and returns how many prefixes were marked. A
// path crossing nested tag levels is marked once per level.
func MarkTags(t Tagger, p Path, idx *TagIndex) (int, error) {
	marked := 0
	for n := 1; n <= len(p); n++ {
		prefix := p[:n]
		if !idx.Match(prefix) {
			continue
		}
		if err := t.SetTag(prefix); err != nil {
			return marked, fmt.Errorf("failed to mark %q as tag node: %w", prefix.String(), err)
		}
		marked++
	}
	return marked, nil
}
