package goroutine

import (
	"runtime/debug"

	"github.com/ignatzorin/taskbridge-backend/internal/logger"
)

// SafeGo запускает фоновую горутину с перехватом panic. Паника
// логируется со стеком и не роняет процесс: фоновые задачи
// (инвалидация кэша, почта) не должны убивать сервер.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithComponent("goroutine").
					WithField("stack", string(debug.Stack())).
					Errorf("panic в фоновой горутине: %v", r)
			}
		}()
		fn()
	}()
}
