package workerpool_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/fluent/config"
	"github.com/pitabwire/fluent/workerpool"
)

type WorkerPoolSuite struct {
	suite.Suite
}

func TestWorkerPoolSuite(t *testing.T) {
	suite.Run(t, new(WorkerPoolSuite))
}

func (s *WorkerPoolSuite) TestRunAll() {
	testCases := []struct {
		name      string
		poolCount int
	}{
		{name: "single pool", poolCount: 1},
		{name: "multi pool", poolCount: 3},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			ctx := context.Background()
			pool, err := workerpool.New(ctx,
				workerpool.WithPoolCount(tc.poolCount),
				workerpool.WithSinglePoolCapacity(2))
			s.Require().NoError(err)
			defer pool.Shutdown()

			var done atomic.Int32
			tasks := make([]func(context.Context) error, 20)
			for i := range tasks {
				tasks[i] = func(context.Context) error {
					done.Add(1)
					return nil
				}
			}

			s.Require().NoError(workerpool.RunAll(ctx, pool, tasks...))
			s.Equal(int32(20), done.Load())
		})
	}
}

func (s *WorkerPoolSuite) TestRunAllJoinsErrors() {
	ctx := context.Background()
	pool, err := workerpool.New(ctx, workerpool.OptionsFromConfig(&config.ConfigurationDefault{
		WorkerPoolCapacity:       4,
		WorkerPoolExpiryDuration: "1s",
	})...)
	s.Require().NoError(err)
	defer pool.Shutdown()

	errA, errB := errors.New("a"), errors.New("b")
	err = workerpool.RunAll(ctx, pool,
		func(context.Context) error { return errA },
		func(context.Context) error { return nil },
		func(context.Context) error { return errB },
	)
	s.Require().ErrorIs(err, errA)
	s.Require().ErrorIs(err, errB)
}

func (s *WorkerPoolSuite) TestCancelledContext() {
	pool, err := workerpool.New(context.Background())
	s.Require().NoError(err)
	defer pool.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err = workerpool.RunAll(ctx, pool, func(context.Context) error {
		ran = true
		return nil
	})
	s.Require().ErrorIs(err, context.Canceled)
	s.False(ran)
}
