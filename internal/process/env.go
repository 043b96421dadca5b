package process

import (
	"os"
	"sort"
	"strings"
)

// buildEnv starts with the current process environment and overlays the
// invocation-specific variables.
func buildEnv(overlay map[string]string) []string {
	if len(overlay) == 0 {
		return nil // exec.Cmd inherits os.Environ()
	}

	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range overlay {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}
