// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package forecast

import "errors"

var (
	ErrInsufficientData = errors.New("not enough observations")
	ErrModelFit         = errors.New("model fit failed")
	ErrTimeout          = errors.New("model exceeded its time budget")
	ErrUnknownModel     = errors.New("unknown model")
	ErrInvalidConfig    = errors.New("invalid forecast configuration")
)
