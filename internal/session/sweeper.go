package session

import (
	"log"
	"time"
)

// Sweeper runs SweepExpired on a fixed interval. It is owned by the process
// lifecycle: main starts it after migration and stops it on shutdown.
type Sweeper struct {
	Manager  *Manager
	Interval time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewSweeper(m *Manager, interval time.Duration) *Sweeper {
	return &Sweeper{
		Manager:  m,
		Interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动后台清理协程。清理失败只记日志，下个周期重试，绝不让进程挂掉。
func (w *Sweeper) Start() {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n, err := w.Manager.SweepExpired()
				if err != nil {
					log.Printf("session sweep: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("session sweep: removed %d expired sessions", n)
				}
			case <-w.stop:
				return
			}
		}
	}()
}

// Stop 停止清理任务并等待协程退出
func (w *Sweeper) Stop() {
	close(w.stop)
	<-w.done
}
