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

// Command convbench plans and runs batches of convolutions with the conv
// package and reports the chosen strategy, the workspace size and the
// throughput.
//
// Usage:
//
//	convbench --src 64x64x16 --dst-depth 32 --kernel 3 --pad 1
//	convbench --src 224x224x3 --dst-depth 64 --kernel 7 --stride 2 --pad 3 --batch 32
//	convbench --src 32x32x8 --strategy sliding --target avx2 --check
//
// Each worker of the pool owns one conv.Buffer, so after the first
// iteration every Forward runs from caller-provided workspace.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
