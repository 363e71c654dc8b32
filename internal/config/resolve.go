// Copyright 2025 Tom Barlow
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

package config

import (
	"context"
	"fmt"
	"regexp"

	"github.com/anomshot/anomshot/internal/secrets"
)

// placeholderPattern matches ${VAR_NAME} credential placeholders.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// resolveValue substitutes every ${VAR_NAME} placeholder in value through
// the secrets resolver. Literal values pass through unchanged. The first
// unresolvable placeholder fails the whole resolution.
func resolveValue(ctx context.Context, value string, resolver *secrets.Resolver) (string, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}
	if resolver == nil {
		resolver = secrets.Default()
	}

	var out []byte
	last := 0
	for _, m := range matches {
		name := value[m[2]:m[3]]
		secret, err := resolver.Get(ctx, name)
		if err != nil {
			return "", fmt.Errorf("cannot resolve placeholder ${%s}: %w", name, err)
		}
		out = append(out, value[last:m[0]]...)
		out = append(out, secret...)
		last = m[1]
	}
	out = append(out, value[last:]...)
	return string(out), nil
}
