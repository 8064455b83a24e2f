package process

import (
	"slices"
	"strings"
)

// mergeEnv layers overrides on top of ambient. Overridden keys keep their
// position, new keys are appended in sorted order. Nothing is removed.
func mergeEnv(ambient []string, overrides map[string]string) []string {
	env := make([]string, 0, len(ambient)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range ambient {
		key, _, _ := strings.Cut(kv, "=")
		value, ok := overrides[key]
		if !ok {
			env = append(env, kv)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		env = append(env, key+"="+value)
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	for _, key := range keys {
		env = append(env, key+"="+overrides[key])
	}
	return env
}
