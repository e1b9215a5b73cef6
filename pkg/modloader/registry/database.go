package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jamesainslie/modloader/pkg/modloader/inifile"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
)

const (
	activeSection   = "Main"
	countKey        = "ActiveModCount"
	activeKeyPrefix = "ActiveMod"
)

func activeKey(i int) string {
	return activeKeyPrefix + strconv.Itoa(i)
}

// isActiveKey reports whether key is one of the indexed ActiveMod<i> keys.
func isActiveKey(key string) bool {
	suffix, ok := strings.CutPrefix(key, activeKeyPrefix)
	if !ok || suffix == "" {
		return false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// readActiveOrder returns the persisted titles. The count and the indexed
// entries must agree exactly; any mismatch is reported, never repaired.
func readActiveOrder(doc *inifile.Document) ([]string, error) {
	sec, ok := doc.Lookup(activeSection)
	if !ok {
		return nil, nil
	}

	indexed := 0
	for _, key := range sec.Keys() {
		if isActiveKey(key) {
			indexed++
		}
	}

	raw, ok := sec.Get(countKey)
	if !ok {
		if indexed > 0 {
			return nil, fmt.Errorf("%w: %d %s entries without %s", ErrCorruptDatabase, indexed, activeKeyPrefix, countKey)
		}
		return nil, nil
	}

	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: invalid %s %q", ErrCorruptDatabase, countKey, raw)
	}
	if count != indexed {
		return nil, fmt.Errorf("%w: %s is %d but %d entries are present", ErrCorruptDatabase, countKey, count, indexed)
	}

	titles := make([]string, 0, count)
	for i := 0; i < count; i++ {
		title, ok := sec.Get(activeKey(i))
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrCorruptDatabase, activeKey(i))
		}
		titles = append(titles, title)
	}
	return titles, nil
}

// Save writes the active order to the document at path. Other sections and
// keys in an existing document are preserved; every previous ActiveMod<i>
// entry is removed before the new range is written, so a shrinking list never
// leaves a stale tail behind.
func (r *Registry) Save(path string) error {
	doc, err := inifile.Load(path)
	switch {
	case errors.Is(err, inifile.ErrNotFound):
		doc = inifile.New()
	case errors.Is(err, inifile.ErrParse):
		logging.Get("registry").Warn("replacing unreadable mods database", "path", path, "error", err)
		doc = inifile.New()
	case err != nil:
		return fmt.Errorf("loading mods database: %w", err)
	}

	sec := doc.Section(activeSection)
	for _, key := range sec.Keys() {
		if isActiveKey(key) {
			sec.Delete(key)
		}
	}

	sec.Set(countKey, strconv.Itoa(len(r.active)))
	for i, title := range r.active {
		sec.Set(activeKey(i), title)
	}

	if err := inifile.Save(doc, path); err != nil {
		return fmt.Errorf("saving mods database: %w", err)
	}

	logging.Get("registry").Info("saved mods database", "path", path, "active", len(r.active))
	return nil
}
