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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyVariableName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"flux", "FLUX_API_KEY"},
		{"qwen-image", "QWEN_IMAGE_API_KEY"},
		{"my provider 2", "MY_PROVIDER_2_API_KEY"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, keyVariableName(tt.in))
	}
}

func TestSplitCommand(t *testing.T) {
	assert.Equal(t,
		[]string{"python", "gen.py", "--prompt", "{prompt}", "--out", "{output}"},
		splitCommand("python gen.py --prompt {prompt} --out {output}"))
	assert.Empty(t, splitCommand(""))
}

func TestValidCost(t *testing.T) {
	assert.NoError(t, validCost(""))
	assert.NoError(t, validCost("0.003"))
	assert.Error(t, validCost("-1"))
	assert.Error(t, validCost("abc"))
}
