package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/logger"
)

const autoReleaseBatchSize = 100

// AutoReleaseSweeper периодически выплачивает эскроу с наступившим сроком
// авто-выплаты. Пропущенный тик не страшен: каждый проход идемпотентен.
type AutoReleaseSweeper struct {
	escrows  *EscrowService
	cron     *cron.Cron
	interval time.Duration
}

func NewAutoReleaseSweeper(escrows *EscrowService, interval time.Duration) *AutoReleaseSweeper {
	return &AutoReleaseSweeper{
		escrows:  escrows,
		cron:     cron.New(),
		interval: interval,
	}
}

// Start запускает планировщик. Остановка происходит при отмене ctx.
func (s *AutoReleaseSweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		goroutine.Protect(func() { s.sweep(ctx) })
	})
	if err != nil {
		return err
	}
	s.cron.Start()

	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	})
	return nil
}

func (s *AutoReleaseSweeper) sweep(ctx context.Context) {
	released, err := s.escrows.RunAutoReleaseSweep(ctx, autoReleaseBatchSize)
	if err != nil {
		logger.Log.WithError(err).Error("проход авто-выплат завершился ошибкой")
		return
	}
	if released > 0 {
		logger.Log.WithField("released", released).Info("авто-выплаты выполнены")
	}
}
