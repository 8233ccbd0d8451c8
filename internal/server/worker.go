package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"styleswap/internal/affiliate"
	"styleswap/internal/notify"
	"styleswap/internal/settings"
	"styleswap/internal/store"
	"styleswap/internal/styleswap"
	"styleswap/internal/tasks"
	"styleswap/internal/worker"
)

// accrualErrorHandler records accruals that will not be retried again in the
// operator log.
func accrualErrorHandler(log *zap.Logger) asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		id, _ := asynq.GetTaskID(ctx)
		if retried < maxRetry && !errors.Is(err, asynq.SkipRetry) {
			log.Warn("task failed, will retry", zap.String("type", task.Type()), zap.String("id", id), zap.Error(err))
			return
		}
		Logger.Error(fmt.Sprintf("%s %s archived after %d retries: %v payload=%s",
			task.Type(), id, retried, err, task.Payload()))
		log.Error("task archived", zap.String("type", task.Type()), zap.String("id", id), zap.Error(err))
	})
}

// WorkerInit runs the commission accrual worker until it fails.
func WorkerInit(config Config, log *zap.Logger) error {
	conn, err := styleswap.InitWorker(config.WorkerConcurrency, accrualErrorHandler(log))
	if err != nil {
		return err
	}
	pool := worker.NewPool(config.WorkerSpeed, config.WorkerQueue)
	defer pool.Close()
	repo := store.NewGormStore(conn.Db)
	accruer := affiliate.NewService(repo, notify.New(pool, conn.Rdb, nil, log), log)
	processor := tasks.NewProcessor(accruer, settings.NewService(repo, conn.Rdb, log), log)

	mux := asynq.NewServeMux()
	processor.Register(mux)
	Logger.Info(fmt.Sprintf("StyleSwap worker is up, concurrency %d", config.WorkerConcurrency))
	if err := conn.Aqs.Run(mux); err != nil {
		return fmt.Errorf("run worker: %w", err)
	}
	return nil
}
