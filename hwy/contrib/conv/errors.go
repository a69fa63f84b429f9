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

package conv

import (
	"errors"
	"fmt"
)

// ErrPreconditionViolation is the only error kind returned by this package.
// It covers invalid geometry, destination dimensions that disagree with the
// geometry, operands shorter than their shapes and workspace buffers that
// claim more memory than they hold. Test with errors.Is.
var ErrPreconditionViolation = errors.New("precondition violation")

func preconditionf(format string, args ...any) error {
	return fmt.Errorf("conv: %s: %w", fmt.Sprintf(format, args...), ErrPreconditionViolation)
}
