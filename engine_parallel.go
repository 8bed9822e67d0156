package graft

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/graft/internal/manifest"
)

// loadManifests decodes the manifests at paths. Results keep argument order
// so that merging, and with it declaration order, does not depend on
// scheduling.
func (e *Engine) loadManifests(ctx context.Context, paths []string) ([]*manifest.File, error) {
	if !e.useParallel || len(paths) < 2 {
		return e.loadManifestsSerial(ctx, paths)
	}
	return e.loadManifestsParallel(ctx, paths)
}

func (e *Engine) loadManifestsSerial(ctx context.Context, paths []string) ([]*manifest.File, error) {
	files := make([]*manifest.File, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := e.readManifest(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// loadManifestsParallel decodes manifests in two phases:
//
//	Phase A (parallel): read, hash and decode via a worker pool.
//	Phase B (serial):   collect results by index and report every failure.
func (e *Engine) loadManifestsParallel(ctx context.Context, paths []string) ([]*manifest.File, error) {
	// ---- Phase A: Parallel decoding ----
	numWorkers := min(runtime.NumCPU(), len(paths))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan int, len(paths))
	for i := range paths {
		workCh <- i
	}
	close(workCh)

	type result struct {
		index int
		file  *manifest.File
		err   error
	}
	resultCh := make(chan result, len(paths))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{index: i, err: err}
					continue
				}
				f, err := e.readManifest(paths[i])
				resultCh <- result{index: i, file: f, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase B: Serial collection ----
	files := make([]*manifest.File, len(paths))
	errs := make([]error, len(paths))
	for res := range resultCh {
		files[res.index] = res.file
		errs[res.index] = res.err
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("graft: loading manifests: %w", err)
	}
	return files, nil
}
