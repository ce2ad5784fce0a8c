package engine

// Namespace roots. Placeholders address values as <root>.<key>; the three
// roots keep operator constants, session context and model arguments from
// shadowing each other.
const (
	RootConst = "const"
	RootCtx   = "ctx"
	RootArg   = "arg"
)

var namespaceRoots = map[string]bool{
	RootConst: true,
	RootCtx:   true,
	RootArg:   true,
}

// Namespace is the per-invocation value tree the template engine resolves
// against. Built fresh for every call, never mutated afterwards.
type Namespace map[string]map[string]any

// NewNamespace merges the three value sources under their roots. Inputs are
// copied so a later mutation of the source maps cannot leak into an in-flight
// call.
func NewNamespace(constants, sessionCtx, args map[string]any) Namespace {
	ns := Namespace{
		RootConst: copyMap(constants),
		RootCtx:   copyMap(sessionCtx),
		RootArg:   copyMap(args),
	}
	return ns
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Lookup resolves root.key to its value. ok is false for an unknown root or a
// key absent from that root.
func (ns Namespace) Lookup(root, key string) (any, bool) {
	sub, ok := ns[root]
	if !ok {
		return nil, false
	}
	v, ok := sub[key]
	return v, ok
}

// ValidTemplateRoot reports whether root is one of the addressable namespace
// roots.
func ValidTemplateRoot(root string) bool {
	return namespaceRoots[root]
}

// ValidateArgumentNames rejects argument names that are reserved namespace
// roots, duplicate another argument, or shadow a constant. Arguments and
// constants land in distinct roots at call time, but an overlap almost
// always indicates a misconfigured tool, so it fails fast at build time.
func ValidateArgumentNames(argNames []string, constants map[string]any) error {
	seen := make(map[string]bool, len(argNames))
	for _, name := range argNames {
		if namespaceRoots[name] {
			return configErrf("argument name %q is a reserved namespace root", name)
		}
		if seen[name] {
			return configErrf("duplicate argument name %q", name)
		}
		seen[name] = true
		if _, ok := constants[name]; ok {
			return configErrf("argument %q collides with a constant of the same name", name)
		}
	}
	return nil
}
