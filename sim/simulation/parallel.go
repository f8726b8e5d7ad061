package simulation

import (
	"context"
	"errors"
	"io"

	"github.com/sarchlab/csim/mem/trace"
	"golang.org/x/sync/errgroup"
)

const (
	jobBatchSize  = 256
	jobQueueDepth = 16
)

// replayParallel reads the trace on one goroutine and hands every access to
// the worker that owns its set. A set is owned by exactly one worker, so the
// accesses to a set are still applied in trace order.
func (s *Simulator) replayParallel(
	ctx context.Context,
	reader *trace.Reader,
) error {
	g, gctx := errgroup.WithContext(ctx)

	queues := make([]chan []job, len(s.shardLocks))
	for i := range queues {
		queue := make(chan []job, jobQueueDepth)
		queues[i] = queue

		g.Go(func() error {
			for batch := range queue {
				if gctx.Err() != nil {
					continue
				}

				for _, j := range batch {
					s.access(j)
				}
			}

			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()

		return s.dispatch(gctx, reader, queues)
	})

	return g.Wait()
}

func (s *Simulator) dispatch(
	ctx context.Context,
	reader *trace.Reader,
	queues []chan []job,
) error {
	batches := make([][]job, len(queues))

	send := func(shard int) error {
		if len(batches[shard]) == 0 {
			return nil
		}

		select {
		case queues[shard] <- batches[shard]:
			batches[shard] = make([]job, 0, jobBatchSize)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return err
		}

		for _, a := range rec.Accesses() {
			setID, tag := s.decoder.Decode(a.Address)
			shard := s.shardOf(setID)

			batches[shard] = append(batches[shard], job{
				line:   reader.Line(),
				op:     rec.Op,
				access: a,
				setID:  setID,
				tag:    tag,
			})

			if len(batches[shard]) >= jobBatchSize {
				if err := send(shard); err != nil {
					return err
				}
			}
		}
	}

	for shard := range batches {
		if err := send(shard); err != nil {
			return err
		}
	}

	return nil
}
