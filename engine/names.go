package engine

import "strconv"

// Prefixes of the engine module names the runtime registers. Guest modules
// never import these names directly; import tables are bound through the
// per-instantiation namespace modules built by the linker.
const (
	prefixInstance = "instance"
	prefixMemory   = "memory"
	prefixTable    = "table"
	prefixGlobal   = "global"
	prefixProbe    = "probe"
)

// nextSuffix returns a suffix unique within the engine.
func (e *WazeroEngine) nextSuffix() string {
	return strconv.FormatUint(e.seq.Add(1), 10)
}

// nextName returns a unique module name such as "memory#3".
func (e *WazeroEngine) nextName(prefix string) string {
	return moduleName(prefix, e.nextSuffix())
}

func moduleName(prefix, suffix string) string {
	return prefix + "#" + suffix
}
