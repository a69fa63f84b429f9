// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ajroetker/hwyconv/hwy"
	"github.com/ajroetker/hwyconv/hwy/contrib/conv"
	"github.com/ajroetker/hwyconv/hwy/contrib/workerpool"
)

const seed = 0x5eed

// stats summarizes per-iteration wall times.
type stats struct {
	min, max, mean time.Duration
}

func summarize(times []time.Duration) stats {
	if len(times) == 0 {
		return stats{}
	}
	return stats{
		min:  lo.Min(times),
		max:  lo.Max(times),
		mean: lo.Sum(times) / time.Duration(len(times)),
	}
}

// gflops returns the throughput of batch convolutions of macs
// multiply-accumulates each, taking d.
func gflops(macs, batch int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return 2 * float64(macs) * float64(batch) / d.Seconds() / 1e9
}

func fill[T hwy.Floats](r *rand.Rand, s []T) {
	for i := range s {
		s[i] = T(r.Float64()*2 - 1)
	}
}

func runBench[T hwy.Floats](w io.Writer, cfg *config, opts []conv.Option) error {
	g := cfg.geometry()
	width, height, err := g.OutputSize(cfg.src)
	if err != nil {
		return err
	}
	dstShape := conv.Shape{Width: width, Height: height, Depth: cfg.dstDepth}

	engine := conv.New[T](opts...)
	plan, err := engine.Plan(cfg.src, g, dstShape)
	if err != nil {
		return err
	}

	pool := workerpool.New(cfg.workers)
	defer pool.Close()

	weights := make([]T, cfg.dstDepth*cfg.src.Depth*g.Taps())
	fill(rand.New(rand.NewPCG(seed, 0)), weights)

	src := make([]conv.Tensor[T], cfg.batch)
	dst := make([]conv.Tensor[T], cfg.batch)
	pool.ParallelFor(cfg.batch, func(start, end int) {
		for i := start; i < end; i++ {
			src[i] = conv.Tensor[T]{Data: make([]T, cfg.src.Size()), Shape: cfg.src}
			fill(rand.New(rand.NewPCG(seed, uint64(i+1))), src[i].Data)
			dst[i] = conv.Tensor[T]{Data: make([]T, dstShape.Size()), Shape: dstShape}
		}
	})

	bufs := make([]conv.Buffer, pool.NumWorkers())
	errs := make([]error, cfg.batch)
	forward := func() error {
		pool.ParallelForAtomicWorker(cfg.batch, func(worker, i int) {
			errs[i] = engine.Forward(src[i], weights, g, &bufs[worker], dst[i], false)
			bufs[worker].Reserve()
		})
		return errors.Join(errs...)
	}

	// Warm-up sizes every worker's buffer.
	if err := forward(); err != nil {
		return err
	}
	times := make([]time.Duration, 0, cfg.iters)
	for range cfg.iters {
		start := time.Now()
		if err := forward(); err != nil {
			return err
		}
		times = append(times, time.Since(start))
	}
	st := summarize(times)

	var zero T
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "target:    %v (%d lanes of %T)\n", engine.Ops().Level(), engine.Ops().Lanes(), zero)
	p.Fprintf(w, "shapes:    %v -> %v, %v\n", plan.Src, plan.Dst, plan.Geometry)
	p.Fprintf(w, "strategy:  %s\n", cases.Title(language.English).String(plan.Strategy.String()))
	p.Fprintf(w, "matmul:    M=%d N=%d K=%d (%d MACs)\n", plan.M, plan.N, plan.K, plan.MACs())
	p.Fprintf(w, "workspace: %d bytes x %d workers\n", plan.WorkspaceSize(), len(bufs))
	p.Fprintf(w, "batch:     %d images, %d iterations\n", cfg.batch, cfg.iters)
	p.Fprintf(w, "time:      min %v  mean %v  max %v\n", st.min, st.mean, st.max)
	p.Fprintf(w, "rate:      %.2f GFLOP/s (mean)\n", gflops(plan.MACs(), cfg.batch, st.mean))

	if !cfg.check {
		return nil
	}
	diff, err := checkAgainstDirect(engine.Ops().Level(), src[0], weights, g, dst[0])
	if err != nil {
		return err
	}
	p.Fprintf(w, "check:     max relative difference to direct %.3g\n", diff)
	if diff > tolerance[T]() {
		return fmt.Errorf("check failed: relative difference %.3g exceeds %.3g", diff, tolerance[T]())
	}
	return nil
}

func tolerance[T hwy.Floats]() float64 {
	var zero T
	if _, ok := any(zero).(float32); ok {
		return 1e-4
	}
	return 1e-10
}

// checkAgainstDirect recomputes src with the direct strategy on the same
// target and returns the largest difference relative to max(1, |want|).
func checkAgainstDirect[T hwy.Floats](level hwy.DispatchLevel, src conv.Tensor[T], weights []T, g conv.Geometry, got conv.Tensor[T]) (float64, error) {
	want := conv.Tensor[T]{Data: make([]T, got.Size()), Shape: got.Shape}
	ref := conv.New[T](conv.WithTarget(level), conv.WithStrategy(conv.Direct))
	if err := ref.Forward(src, weights, g, nil, want, false); err != nil {
		return 0, err
	}
	diffs := lo.Map(want.Data, func(v T, i int) float64 {
		return math.Abs(float64(got.Data[i])-float64(v)) / math.Max(1, math.Abs(float64(v)))
	})
	return lo.Max(diffs), nil
}
