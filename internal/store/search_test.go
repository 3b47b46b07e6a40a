// Copyright 2025 uzqw
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

package store

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openUnitVectorStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.bin")
	s, err := Open(path, 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(false) })

	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
		{0.9, 0.1, 0, 0},
	}
	for _, v := range vectors {
		_, err := s.Append(v, false)
		require.NoError(t, err)
	}
	return s
}

func TestSearchTop3MostSimilar(t *testing.T) {
	s := openUnitVectorStore(t)

	got, err := s.Search([]float32{1, 0, 0, 0}, 3, true, SINGLE)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.Equal(t, uint64(0), got[0].ID)
	require.InDelta(t, 1.0, got[0].Score, 1e-3)

	require.Equal(t, uint64(4), got[1].ID)
	require.InDelta(t, 0.994, got[1].Score, 1e-2)

	require.InDelta(t, 0.0, got[2].Score, 1e-4)
}

func TestSearchTop3LeastSimilar(t *testing.T) {
	s := openUnitVectorStore(t)

	got, err := s.Search([]float32{1, 0, 0, 0}, 3, false, SINGLE)
	require.NoError(t, err)
	require.Len(t, got, 3)

	ids := map[uint64]bool{}
	for _, c := range got {
		ids[c.ID] = true
		require.InDelta(t, 0.0, c.Score, 1e-4)
	}
	require.True(t, ids[1])
	require.True(t, ids[2])
	require.True(t, ids[3])
}

func TestSearchParallelParity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	s, err := Open(path, 8)
	require.NoError(t, err)
	defer s.Close(false)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		v := make([]float32, 8)
		for d := range v {
			v[d] = rng.Float32()*2 - 1
		}
		_, err := s.Append(v, false)
		require.NoError(t, err)
	}

	query := make([]float32, 8)
	for d := range query {
		query[d] = rng.Float32()*2 - 1
	}

	single, err := s.Search(query, 10, true, SINGLE)
	require.NoError(t, err)
	auto, err := s.Search(query, 10, true, AUTO)
	require.NoError(t, err)

	require.Len(t, auto, len(single))

	singleByID := map[uint64]float32{}
	for _, c := range single {
		singleByID[c.ID] = c.Score
	}
	for _, c := range auto {
		score, ok := singleByID[c.ID]
		require.True(t, ok, "id %d present in AUTO but not SINGLE result", c.ID)
		require.InDelta(t, score, c.Score, 1e-4)
	}
}

func TestSearchSkipsTombstones(t *testing.T) {
	s := openUnitVectorStore(t)
	require.NoError(t, s.Delete(0))

	got, err := s.Search([]float32{1, 0, 0, 0}, 5, true, SINGLE)
	require.NoError(t, err)
	for _, c := range got {
		require.NotEqual(t, uint64(0), c.ID)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	s, err := Open(path, 4)
	require.NoError(t, err)
	defer s.Close(false)

	got, err := s.Search([]float32{1, 0, 0, 0}, 3, true, SINGLE)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSearchRejectsNonPositiveN(t *testing.T) {
	s := openUnitVectorStore(t)
	_, err := s.Search([]float32{1, 0, 0, 0}, 0, true, SINGLE)
	require.Error(t, err)
}
