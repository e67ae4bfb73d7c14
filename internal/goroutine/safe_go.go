package goroutine

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// SafeGo запускает fn в фоновой горутине и перехватывает panic:
// стек уходит в лог вместо падения всего процесса.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("component", "goroutine").
					Errorf("panic в горутине: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}
