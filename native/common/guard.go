package common

import cerrs "zusdchain/core/errors"

var ErrModulePaused = cerrs.New(cerrs.KindResource, "module paused")

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
