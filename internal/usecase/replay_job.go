package usecase

import (
	"context"
	"encoding/json"
	"time"

	"ComputeOracle/pkg/logger"
	"ComputeOracle/pkg/queue"
)

const ReplayJobType = "replay"

type ReplayPayload struct {
	ReplayID string    `json:"replay_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// ReplayJob runs queued replays on the queue workers.
type ReplayJob struct {
	engine *ReplayEngine
	lgr    *logger.Logger
}

func NewReplayJob(engine *ReplayEngine, lgr *logger.Logger) *ReplayJob {
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &ReplayJob{engine: engine, lgr: lgr}
}

func (j *ReplayJob) Name() string { return "replay-runner" }
func (j *ReplayJob) Type() string { return ReplayJobType }

// Handle runs the replay. Once the error is on the status the message is
// acknowledged, so a failed replay is not redelivered.
func (j *ReplayJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[ReplayPayload](payload)
	if err != nil {
		return err
	}
	st, err := j.engine.Run(ctx, p.ReplayID, p.Start, p.End)
	if err != nil && st != nil && st.IsTerminal() {
		j.lgr.Warn("replay finished with error",
			logger.String("replay_id", p.ReplayID),
			logger.Error(err))
		return nil
	}
	return err
}
