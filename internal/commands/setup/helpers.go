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

package setup

import (
	"strings"
	"unicode"
)

// keyVariableName derives the credential placeholder variable from a
// provider name: "qwen-image" becomes QWEN_IMAGE_API_KEY.
func keyVariableName(providerName string) string {
	var b strings.Builder
	for _, r := range providerName {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune('_')
		}
	}
	return b.String() + "_API_KEY"
}

// splitCommand breaks a command line into an argv on whitespace. Setup
// keeps this simple; quoting-sensitive commands can be edited in the
// config file directly.
func splitCommand(command string) []string {
	return strings.Fields(command)
}
