package director

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/rig2video/internal/pose"
	"github.com/ivlev/rig2video/internal/rig"
)

// SolveFrames evaluates frames 0..=totalFrames on up to workers goroutines.
// Frames are independent; results land in a slice indexed by frame, so the
// output is in ascending frame order regardless of completion order.
func SolveFrames(ctx context.Context, s *pose.Solver, r *rig.Rig, totalFrames, workers int) ([][]pose.Pose, error) {
	if totalFrames < 0 {
		return nil, fmt.Errorf("%w: total frames %d", pose.ErrInvalidFrame, totalFrames)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([][]pose.Pose, totalFrames+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// Кадры раздаются пачками, чтобы не плодить горутину на каждый кадр
	batch := (totalFrames + 1 + workers - 1) / workers
	if batch > 64 {
		batch = 64
	}

	for start := 0; start <= totalFrames; start += batch {
		if gctx.Err() != nil {
			break
		}
		start := start
		end := start + batch - 1
		if end > totalFrames {
			end = totalFrames
		}
		g.Go(func() error {
			for f := start; f <= end; f++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				poses, err := s.Solve(r, f, totalFrames)
				if err != nil {
					return fmt.Errorf("frame %d: %w", f, err)
				}
				results[f] = poses
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
