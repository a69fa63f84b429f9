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
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ajroetker/hwyconv/hwy"
	"github.com/ajroetker/hwyconv/hwy/contrib/conv"
)

// shapeValue is a pflag.Value parsing "WxHxD" (or "WxH", depth 1).
type shapeValue struct {
	shape *conv.Shape
}

var _ pflag.Value = shapeValue{}

func (v shapeValue) String() string {
	if v.shape == nil {
		return ""
	}
	return fmt.Sprintf("%dx%dx%d", v.shape.Width, v.shape.Height, v.shape.Depth)
}

func (v shapeValue) Set(s string) error {
	shape, err := parseShape(s)
	if err != nil {
		return err
	}
	*v.shape = shape
	return nil
}

func (v shapeValue) Type() string { return "WxHxD" }

func parseShape(s string) (conv.Shape, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) < 2 || len(parts) > 3 {
		return conv.Shape{}, fmt.Errorf("shape %q: want WxHxD", s)
	}
	var bad []string
	dims := lo.Map(parts, func(p string, _ int) int {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			bad = append(bad, p)
		}
		return n
	})
	if len(bad) > 0 {
		return conv.Shape{}, fmt.Errorf("shape %q: invalid dimension(s) %s", s, strings.Join(bad, ", "))
	}
	if len(dims) == 2 {
		dims = append(dims, 1)
	}
	return conv.Shape{Width: dims[0], Height: dims[1], Depth: dims[2]}, nil
}

// config is everything the flags describe.
type config struct {
	src      conv.Shape
	dstDepth int
	kernel   int
	pad      int
	stride   int
	dilation int
	strategy string
	target   string
	batch    int
	workers  int
	iters    int
	f64      bool
	check    bool
}

func (c *config) geometry() conv.Geometry {
	return conv.Square(c.kernel, c.pad, c.stride, c.dilation)
}

func newRootCmd() *cobra.Command {
	cfg := &config{src: conv.Shape{Width: 64, Height: 64, Depth: 16}}

	cmd := &cobra.Command{
		Use:           "convbench",
		Short:         "Plan and benchmark convolution strategies",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfg)
		},
	}

	levels := lo.Map(hwy.Levels(), func(l hwy.DispatchLevel, _ int) string { return l.String() })

	f := cmd.Flags()
	f.Var(shapeValue{&cfg.src}, "src", "source tensor shape")
	f.IntVar(&cfg.dstDepth, "dst-depth", 32, "number of output channels")
	f.IntVarP(&cfg.kernel, "kernel", "k", 3, "square kernel size")
	f.IntVarP(&cfg.pad, "pad", "p", 1, "zero padding on each side")
	f.IntVarP(&cfg.stride, "stride", "s", 1, "stride")
	f.IntVarP(&cfg.dilation, "dilation", "d", 1, "dilation")
	f.StringVar(&cfg.strategy, "strategy", "auto", "strategy: auto, direct, blocked or sliding")
	f.StringVar(&cfg.target, "target", "auto", "vector target: auto or one of "+strings.Join(levels, ", "))
	f.IntVarP(&cfg.batch, "batch", "b", 8, "images per iteration")
	f.IntVarP(&cfg.workers, "workers", "w", 0, "worker goroutines (0 uses GOMAXPROCS)")
	f.IntVarP(&cfg.iters, "iters", "n", 10, "timed iterations")
	f.BoolVar(&cfg.f64, "f64", false, "use float64 instead of float32")
	f.BoolVar(&cfg.check, "check", false, "compare the first image against the direct strategy")

	return cmd
}

func run(cmd *cobra.Command, cfg *config) error {
	if cfg.batch <= 0 || cfg.iters <= 0 {
		return fmt.Errorf("--batch and --iters must be positive")
	}
	if cfg.dstDepth <= 0 {
		return fmt.Errorf("--dst-depth must be positive")
	}
	level, err := hwy.ParseLevel(cfg.target)
	if err != nil {
		return err
	}
	strategy, err := conv.ParseStrategy(cfg.strategy)
	if err != nil {
		return err
	}
	opts := []conv.Option{conv.WithTarget(level), conv.WithStrategy(strategy)}
	if cfg.f64 {
		return runBench[float64](cmd.OutOrStdout(), cfg, opts)
	}
	return runBench[float32](cmd.OutOrStdout(), cfg, opts)
}
