// Package tasks defines the background jobs processed by the asynq worker.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"styleswap/internal/affiliate"
	"styleswap/internal/styleswap"
)

const (
	TypeCommissionAccrue = "commission:accrue"

	accrueMaxRetry = 10
	accrueTimeout  = 30 * time.Second
)

type Accruer interface {
	Accrue(ctx context.Context, st affiliate.Settlement, cfg styleswap.AffiliateSettings) (*styleswap.Commission, error)
}

type SettingsLoader interface {
	Get(ctx context.Context) (styleswap.Settings, error)
}

func NewCommissionAccrueTask(st affiliate.Settlement) (*asynq.Task, error) {
	payload, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCommissionAccrue, payload,
		asynq.Queue(styleswap.QueueCommissions),
		asynq.MaxRetry(accrueMaxRetry),
		asynq.Timeout(accrueTimeout),
	), nil
}

// Enqueuer hands settlements to the worker.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueAccrual(ctx context.Context, st affiliate.Settlement) error {
	task, err := NewCommissionAccrueTask(st)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task)
	return err
}

type Processor struct {
	accruer  Accruer
	settings SettingsLoader
	log      *zap.Logger
}

func NewProcessor(accruer Accruer, settings SettingsLoader, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{accruer: accruer, settings: settings, log: log.Named("tasks")}
}

func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCommissionAccrue, p.HandleCommissionAccrueTask)
}

// HandleCommissionAccrueTask accrues one settlement. Store failures are
// returned so asynq retries; settlements that can never produce a commission
// are acknowledged.
func (p *Processor) HandleCommissionAccrueTask(ctx context.Context, t *asynq.Task) error {
	var st affiliate.Settlement
	if err := json.Unmarshal(t.Payload(), &st); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	settings, err := p.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	commission, err := p.accruer.Accrue(ctx, st, settings.Affiliate)
	switch {
	case err == nil:
		if commission != nil {
			p.log.Debug("accrual processed", zap.String("transaction_id", st.TransactionId), zap.String("commission_id", commission.Id))
		}
		return nil
	case errors.Is(err, styleswap.ErrNotFound):
		return nil
	case errors.Is(err, styleswap.ErrValidation):
		p.log.Warn("accrual rejected", zap.String("transaction_id", st.TransactionId), zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}

// FailedAccrual is an accrual that exhausted its retries or was rejected.
type FailedAccrual struct {
	TaskId     string               `json:"task_id"`
	Settlement affiliate.Settlement `json:"settlement"`
	LastError  string               `json:"last_error"`
	FailedAt   time.Time            `json:"failed_at"`
}

// FailedAccruals lists archived accrual tasks awaiting operator follow-up.
func FailedAccruals(i *asynq.Inspector) ([]FailedAccrual, error) {
	infos, err := i.ListArchivedTasks(styleswap.QueueCommissions)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return []FailedAccrual{}, nil
		}
		return nil, err
	}
	failed := make([]FailedAccrual, 0, len(infos))
	for _, info := range infos {
		if info.Type != TypeCommissionAccrue {
			continue
		}
		var st affiliate.Settlement
		if err := json.Unmarshal(info.Payload, &st); err != nil {
			continue
		}
		failed = append(failed, FailedAccrual{
			TaskId:     info.ID,
			Settlement: st,
			LastError:  info.LastErr,
			FailedAt:   info.LastFailedAt,
		})
	}
	return failed, nil
}
