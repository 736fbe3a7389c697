package ir

import "strconv"

// CurrentDebugVersion is the debug metadata version produced by current
// frontends. Modules carrying older versions are canonicalized on load.
const CurrentDebugVersion = 3

// DebugVersionKey is the metadata key holding the debug info version.
const DebugVersionKey = "debug.version"

// UpgradeDebugInfo canonicalizes debug metadata to CurrentDebugVersion.
// Records from unreadably old versions are dropped rather than upgraded.
// The upgrade runs at most once per module; later calls are no-ops.
// Metadata must be materialized before calling.
func UpgradeDebugInfo(m *Module) {
	if m.upgraded {
		return
	}
	m.upgraded = true

	raw, ok := m.Meta[DebugVersionKey]
	if !ok {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		// Unreadable debug info: strip it.
		for key := range m.Meta {
			if key == DebugVersionKey || hasDebugPrefix(key) {
				delete(m.Meta, key)
			}
		}
		return
	}
	if v < CurrentDebugVersion {
		m.Meta[DebugVersionKey] = strconv.Itoa(CurrentDebugVersion)
	}
}

// DebugUpgraded reports whether the upgrade pass has run on this module.
func DebugUpgraded(m *Module) bool {
	return m.upgraded
}

func hasDebugPrefix(key string) bool {
	return len(key) > 6 && key[:6] == "debug."
}
