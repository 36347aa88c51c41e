package common

import "errors"

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a fixed pause set loaded from configuration at startup.
type StaticPauses map[string]struct{}

// NewStaticPauses builds a pause set from module names.
func NewStaticPauses(modules []string) StaticPauses {
	set := make(StaticPauses, len(modules))
	for _, module := range modules {
		set[module] = struct{}{}
	}
	return set
}

func (s StaticPauses) IsPaused(module string) bool {
	_, ok := s[module]
	return ok
}
