// Package discovery resolves the input glob into build jobs.
package discovery

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	kserrors "github.com/katattakd/katsite/internal/errors"
)

// OutputExt is the extension given to every output file.
const OutputExt = ".html"

// Job pairs one source document with the file it builds.
type Job struct {
	Input  string
	Output string
}

// Discover expands pattern (which may use `**`) and maps every matched file to
// its output path under outputDir. Directories are never matched. Jobs are
// sorted by input path so repeated runs log in a stable order.
func Discover(pattern, outputDir string) ([]Job, error) {
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return nil, kserrors.GlobInvalid(pattern, doublestar.ErrBadPattern)
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, kserrors.GlobInvalid(pattern, err)
	}
	slices.Sort(matches)

	base := Base(pattern)
	jobs := make([]Job, 0, len(matches))
	for _, input := range matches {
		output, err := OutputPath(base, input, outputDir)
		if err != nil {
			return nil, kserrors.GlobInvalid(pattern, err)
		}
		jobs = append(jobs, Job{Input: input, Output: output})
	}
	return jobs, nil
}

// Base returns the static directory prefix of pattern, the part before the
// first path segment containing a glob meta character.
func Base(pattern string) string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return filepath.FromSlash(base)
}

// OutputPath maps input, found under base, to outputDir: the relative
// directory is mirrored and the extension replaced with OutputExt.
func OutputPath(base, input, outputDir string) (string, error) {
	rel, err := filepath.Rel(base, input)
	if err != nil {
		return "", fmt.Errorf("map %s to output: %w", input, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("map %s to output: outside of %s", input, base)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + OutputExt
	return filepath.Join(outputDir, rel), nil
}
