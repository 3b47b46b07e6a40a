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

package heap

import (
	"reflect"
	"testing"
)

func TestBoundedMostSimilar(t *testing.T) {
	b := NewBounded(3, MostSimilar)
	b.Push(0, 0.1)
	b.Push(1, 0.9)
	b.Push(2, 0.5)
	b.Push(3, 0.95) // should evict id 0 (lowest, 0.1)
	b.Push(4, 0.2)  // should not be admitted (below current root 0.5)

	got := b.Sorted()
	if len(got) != 3 {
		t.Fatalf("Sorted() len = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("MostSimilar results not descending: %+v", got)
		}
	}
	if got[0].ID != 3 {
		t.Errorf("top result id = %d, want 3 (score 0.95)", got[0].ID)
	}
}

func TestBoundedLeastSimilar(t *testing.T) {
	b := NewBounded(2, LeastSimilar)
	b.Push(0, 0.8)
	b.Push(1, 0.1)
	b.Push(2, 0.05) // displaces the larger of the two kept
	b.Push(3, 0.9)  // should not be admitted

	got := b.Sorted()
	if len(got) != 2 {
		t.Fatalf("Sorted() len = %d, want 2", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score < got[i-1].Score {
			t.Errorf("LeastSimilar results not ascending: %+v", got)
		}
	}
	want := []uint64{2, 1}
	gotIDs := []uint64{got[0].ID, got[1].ID}
	if !reflect.DeepEqual(gotIDs, want) {
		t.Errorf("LeastSimilar ids = %v, want %v", gotIDs, want)
	}
}

func TestBoundedTiesNotAdmittedAfterFull(t *testing.T) {
	b := NewBounded(1, MostSimilar)
	b.Push(0, 0.5)
	b.Push(1, 0.5) // tie; first-seen wins
	got := b.Sorted()
	if len(got) != 1 || got[0].ID != 0 {
		t.Errorf("tie admitted incorrectly: %+v", got)
	}
}

func TestBoundedUnderCapacity(t *testing.T) {
	b := NewBounded(5, MostSimilar)
	b.Push(0, 1.0)
	b.Push(1, 0.5)
	got := b.Sorted()
	if len(got) != 2 {
		t.Errorf("Sorted() len = %d, want 2 when under capacity", len(got))
	}
}
