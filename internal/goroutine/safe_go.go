package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/otp-auth/internal/logger"
)

// RecoveryHandler перехватывает panic в фоновых горутинах.
type RecoveryHandler struct {
	log func() logrus.FieldLogger
}

// NewRecoveryHandler создаёт обработчик с фиксированным логгером.
func NewRecoveryHandler(log logrus.FieldLogger) *RecoveryHandler {
	return &RecoveryHandler{log: func() logrus.FieldLogger { return log }}
}

// SafeGo запускает горутину с обработкой panic.
func (rh *RecoveryHandler) SafeGo(name string, fn func()) {
	go func() {
		defer rh.recover(name)
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer rh.recover(name)
		fn(ctx)
	}()
}

func (rh *RecoveryHandler) recover(name string) {
	if r := recover(); r != nil {
		rh.log().WithFields(logrus.Fields{
			"goroutine": name,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("panic в горутине")
	}
}

// DefaultRecoveryHandler пишет в глобальный логгер. Логгер берётся в момент
// panic, поэтому учитывает настройки, сделанные logger.Init после старта.
var DefaultRecoveryHandler = &RecoveryHandler{log: func() logrus.FieldLogger { return logger.Log }}

// SafeGo запускает безопасную горутину через DefaultRecoveryHandler.
func SafeGo(name string, fn func()) {
	DefaultRecoveryHandler.SafeGo(name, fn)
}

// SafeGoWithContext то же, что SafeGo, но с контекстом.
func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, name, fn)
}
