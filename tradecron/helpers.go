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

package tradecron

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// expandBriefFormat pads a timespec that omits trailing fields with wildcards
func expandBriefFormat(spec string) string {
	tokens := strings.Fields(spec)

	special := 0
	for _, token := range tokens {
		if strings.HasPrefix(token, "@") {
			special++
		}
	}

	for len(tokens) < 5+special {
		tokens = append(tokens, "*")
	}

	return strings.Join(tokens, " ")
}

// parseTimeRelativeTo offsets the minute and hour tokens by the given market time
func parseTimeRelativeTo(tokens []string, hours int, minutes int) (string, error) {
	if len(tokens) != 5 {
		return "", ErrMalformedTimeSpec
	}

	parse := func(token, field string) (int, error) {
		if token == "*" {
			return 0, nil
		}
		v, err := strconv.Atoi(token)
		if err != nil {
			log.Error().Str(field, token).Msg("could not parse relative time token")
			return 0, ErrMalformedTimeSpec
		}
		return v, nil
	}

	mins, err := parse(tokens[0], "MinutesToken")
	if err != nil {
		return "", err
	}

	hrs, err := parse(tokens[1], "HoursToken")
	if err != nil {
		return "", err
	}

	total := (hours+hrs)*60 + minutes + mins
	if total < 0 || total >= 24*60 {
		return "", ErrFieldOutOfBounds
	}

	return fmt.Sprintf("%d %d %s %s %s", total%60, total/60, tokens[2], tokens[3], tokens[4]), nil
}
