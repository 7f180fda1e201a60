package sepadoc

import "context"

// StateChange is one transition of the pipeline state machine.
type StateChange struct {
	RunID string
	Stage Stage
	From  StageState
	To    StageState
}

// StateChangeHookFunc is called for every state change. Errors are logged and do not affect the stage.
type StateChangeHookFunc func(ctx context.Context, change StateChange) error

func (p *Pipeline) runHooks(ctx context.Context, changes []StateChange) {
	for _, change := range changes {
		for _, hook := range p.hooks {
			err := hook(ctx, change)
			if err != nil {
				p.log.Error(ctx, err, MKV{
					"run_id": change.RunID,
					"from":   change.From.String(),
					"to":     change.To.String(),
				})
			}
		}
	}
}
