package badger

import (
	"strings"

	"go.uber.org/zap"
)

// zapAdapter satisfies badger.Logger.
type zapAdapter struct {
	sugar *zap.SugaredLogger
}

func (a zapAdapter) Errorf(format string, args ...any) {
	a.sugar.Errorf(strings.TrimSuffix(format, "\n"), args...)
}

func (a zapAdapter) Warningf(format string, args ...any) {
	a.sugar.Warnf(strings.TrimSuffix(format, "\n"), args...)
}

func (a zapAdapter) Infof(format string, args ...any) {
	a.sugar.Infof(strings.TrimSuffix(format, "\n"), args...)
}

func (a zapAdapter) Debugf(format string, args ...any) {
	a.sugar.Debugf(strings.TrimSuffix(format, "\n"), args...)
}
