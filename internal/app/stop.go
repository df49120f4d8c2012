package app

import (
	"context"
	"fmt"
	"time"

	logx "pushrelay/pkg/logx"
)

// stepper runs shutdown steps with an upper bound each so one component can't stall the whole stop.
type stepper struct {
	ctx context.Context
	log logx.Logger
}

func (s stepper) step(name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	s.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", limit))

	stepCtx := s.ctx
	if limit > 0 {
		// Respect the caller's deadline; never extend it.
		if dl, ok := s.ctx.Deadline(); ok {
			limit = min(limit, max(time.Until(dl), 0))
		}
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(s.ctx, limit)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			s.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			s.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	case <-stepCtx.Done():
		// fn must honor stepCtx; if it doesn't, log when it eventually finishes.
		s.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			err := <-done
			fields := []logx.Field{logx.String("name", name), logx.Duration("took", time.Since(start))}
			if err != nil {
				s.log.Warn("stop step finished after deadline", append(fields, logx.Err(err))...)
				return
			}
			s.log.Info("stop step finished after deadline", fields...)
		}()
	}
}
