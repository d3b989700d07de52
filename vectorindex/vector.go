// Copyright 2025 Poiesic Systems
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

package vectorindex

import (
	"encoding/json"
	"fmt"
	"math"
)

// parseVector decodes a stored embedding (a JSON float array) and checks
// its size against dims.
func parseVector(raw string, dims int) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, err
	}
	if len(vec) != dims {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dims, len(vec))
	}
	return vec, nil
}

// NormalizeVector normalizes a vector to unit length (L2 normalization).
// Returns a new vector with the same direction but magnitude 1.0.
// Returns a zero vector if the input is a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return []float32{}
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	// Can't normalize zero vector
	if magnitude == 0 {
		return result
	}

	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// CosineDistance returns 1 - cos(a, b). Zero vectors are maximally distant.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 1
	}
	na, nb := NormalizeVector(a), NormalizeVector(b)
	var dot float32
	for i := range na {
		dot += na[i] * nb[i]
	}
	if dot == 0 {
		return 1
	}
	return 1 - dot
}
