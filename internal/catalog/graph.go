package catalog

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"quizmap-service/internal/domain"
)

// IsUnlocked reports whether every prerequisite of key is in completed.
// A prerequisite naming a subject that no longer exists can never be satisfied,
// so dependents of a deleted subject stay locked until their list is edited.
func IsUnlocked(c domain.Catalog, key string, completed []string) bool {
	s, ok := c.Get(key)
	if !ok {
		return false
	}
	for _, prereq := range s.Prerequisites {
		if !c.Has(prereq) || !slices.Contains(completed, prereq) {
			return false
		}
	}
	return true
}

// Unlocked returns every unlocked subject key in catalog order.
func Unlocked(c domain.Catalog, completed []string) []string {
	var keys []string
	for _, s := range c.Subjects {
		if IsUnlocked(c, s.Key, completed) {
			keys = append(keys, s.Key)
		}
	}
	return keys
}

// Dependents returns the keys of subjects that list key as a prerequisite.
func Dependents(c domain.Catalog, key string) []string {
	var deps []string
	for _, s := range c.Subjects {
		if slices.Contains(s.Prerequisites, key) {
			deps = append(deps, s.Key)
		}
	}
	return deps
}

// TopologicalOrder sorts subject keys so that every subject follows its prerequisites.
// Ties are broken alphabetically. Prerequisites naming missing subjects are ignored.
func TopologicalOrder(c domain.Catalog) ([]string, error) {
	inDegree := make(map[string]int, c.Len())
	dependents := make(map[string][]string)
	for _, s := range c.Subjects {
		if _, seen := inDegree[s.Key]; !seen {
			inDegree[s.Key] = 0
		}
		for _, prereq := range dedupe(s.Prerequisites) {
			if !c.Has(prereq) {
				continue
			}
			inDegree[s.Key]++
			dependents[prereq] = append(dependents[prereq], s.Key)
		}
	}

	var queue []string
	for key, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, key)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(inDegree))
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		order = append(order, key)

		next := slices.Clone(dependents[key])
		sort.Strings(next)
		for _, dep := range next {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) < len(inDegree) {
		var cycle []string
		for _, s := range c.Subjects {
			if inDegree[s.Key] > 0 {
				cycle = append(cycle, s.Key)
			}
		}
		return nil, fmt.Errorf("prerequisite cycle involving: %s", strings.Join(cycle, ", "))
	}
	return order, nil
}

func dedupe(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}
