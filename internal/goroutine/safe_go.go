package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/escrow-backend/internal/logger"
)

// RecoveryHandler перехватывает panic в фоновых задачах, чтобы сбой
// одного прохода планировщика не ронял процесс.
type RecoveryHandler struct{}

func NewRecoveryHandler() *RecoveryHandler {
	return &RecoveryHandler{}
}

// Protect выполняет fn в текущей горутине с перехватом panic.
// Используется в задачах планировщика, которые cron запускает сам.
func (rh *RecoveryHandler) Protect(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("panic в фоновой задаче: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}

// Go запускает горутину с перехватом panic.
func (rh *RecoveryHandler) Go(fn func()) {
	go rh.Protect(fn)
}

// GoWithContext запускает горутину с контекстом и перехватом panic.
func (rh *RecoveryHandler) GoWithContext(ctx context.Context, fn func(context.Context)) {
	go rh.Protect(func() { fn(ctx) })
}

var defaultHandler = NewRecoveryHandler()

// Protect выполняет fn с перехватом panic через обработчик по умолчанию.
func Protect(fn func()) {
	defaultHandler.Protect(fn)
}

// SafeGo запускает безопасную горутину через обработчик по умолчанию.
func SafeGo(fn func()) {
	defaultHandler.Go(fn)
}

// SafeGoWithContext запускает безопасную горутину с контекстом.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	defaultHandler.GoWithContext(ctx, fn)
}
