// Package annotation provides optional enrichment keyed by workflow path. The clustering and
// consolidation logic only sees the narrow Lookup interface.
package annotation

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

// Lookup returns the annotation attached to a workflow path, if any.
type Lookup interface {
	Annotation(path string) (model.Annotation, bool)
}

// None is a Lookup without any annotation.
var None Lookup = Static(nil)

// Static is an in-memory Lookup keyed by cleaned path.
type Static map[string]model.Annotation

// Annotation implements Lookup.
func (s Static) Annotation(path string) (model.Annotation, bool) {
	a, ok := s[filepath.Clean(path)]

	return a, ok
}

// Paths returns the annotated paths, sorted.
func (s Static) Paths() []string {
	paths := make([]string, 0, len(s))
	for path := range s {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	return paths
}

type fileEntry struct {
	Path             string `yaml:"path"`
	model.Annotation `yaml:",inline"`
}

type file struct {
	Annotations []fileEntry `yaml:"annotations"`
}

// Load reads an annotation file:
//
//	annotations:
//	  - path: .github/workflows/ci.yml
//	    emotion: frustrated
//	    tag: flaky
//	    context: retried three times last week
//	    prompt: stabilize the integration job
//	    score: 0.8
//
// Relative paths are resolved against root so they match the paths produced by a scan of
// root. Later entries for the same path replace earlier ones.
func Load(path, root string) (Static, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read annotation file %s", path)
	}

	var f file
	err = yaml.Unmarshal(content, &f)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse annotation file %s", path)
	}

	static := make(Static, len(f.Annotations))
	for i, entry := range f.Annotations {
		if entry.Path == "" {
			return nil, errors.Errorf("annotation file %s: entry %d has no path", path, i)
		}
		target := entry.Path
		if !filepath.IsAbs(target) && root != "" {
			target = filepath.Join(root, target)
		}
		static[filepath.Clean(target)] = entry.Annotation
	}

	return static, nil
}
