package sepadoc

import (
	"context"
	"strconv"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/robfig/cron/v3"
	"k8s.io/utils/clock"
)

// DefaultScheduleWindow is the payment period covered by a scheduled run when none is given.
const DefaultScheduleWindow = 24 * time.Hour

// Schedule runs RunAll at every tick of the cron spec over the window ending at the tick. Schedule blocks until ctx
// is cancelled. A tick that cannot start, for example because a stage started by hand is running, is logged and
// skipped.
func (p *Pipeline) Schedule(ctx context.Context, spec string, window time.Duration) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return errors.Wrap(ErrInvalidSchedule, err.Error(), j.MKV{"spec": spec})
	}

	if window <= 0 {
		window = DefaultScheduleWindow
	}

	for {
		next := schedule.Next(p.clock.Now())
		err := waitUntil(ctx, p.clock, next)
		if err != nil {
			return err
		}

		dr := DateRange{Start: next.Add(-window), End: next}
		res, err := p.RunAll(ctx, dr)
		if ctx.Err() != nil {
			return ctx.Err()
		} else if err != nil {
			p.log.Error(ctx, err, MKV{"spec": spec, "tick": next.Format(time.DateTime)})
			continue
		}

		p.log.Info(ctx, "scheduled run finished", MKV{
			"spec":      spec,
			"tick":      next.Format(time.DateTime),
			"stage":     res.Stage.String(),
			"outcome":   res.Outcome.String(),
			"completed": strconv.Itoa(res.Completed),
		})
	}
}

func waitUntil(ctx context.Context, clock clock.Clock, until time.Time) error {
	timeDiffAsDuration := until.Sub(clock.Now())
	if timeDiffAsDuration <= 0 {
		return nil
	}

	t := clock.NewTimer(timeDiffAsDuration)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
