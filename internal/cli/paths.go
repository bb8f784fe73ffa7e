package cli

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"

	"github.com/fileguard-project/fileguard/pkg/errclass"
)

// expandPaths expands glob patterns in --path values. Plain paths pass
// through untouched, so a missing plain path still fails at capture with
// E_NOT_FOUND. A pattern matching nothing is an error.
func expandPaths(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		if !strings.ContainsAny(p, "*?[{") {
			out = append(out, p)
			continue
		}
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, errclass.ErrPathInvalid.Wrapf(err, "pattern %q", p)
		}
		if len(matches) == 0 {
			return nil, errclass.ErrNotFound.WithMessagef("pattern %q matched nothing", p)
		}
		out = append(out, matches...)
	}
	return lo.Uniq(out), nil
}
