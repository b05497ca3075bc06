package process

import "fmt"

// FindModule returns the bounds of the named module in h.
func FindModule(h Handle, name string) (ModuleInfo, error) {
	modules, err := h.Modules()
	if err != nil {
		return ModuleInfo{}, fmt.Errorf("failed to list modules of process %d: %w", h.GetPID(), err)
	}

	// exact matches take priority over the case-insensitive fallback
	for _, m := range modules {
		if m.Name == name || m.Path == name {
			return m, nil
		}
	}
	for _, m := range modules {
		if m.NameMatches(name) {
			return m, nil
		}
	}

	return ModuleInfo{}, fmt.Errorf("module %q in process %d: %w", name, h.GetPID(), ErrNotFound)
}
