package session

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestStability_Observe(t *testing.T) {
	s := stability{required: 3}
	var got []bool
	for _, text := range []string{"A", "A", "B", "B", "B", "B"} {
		got = append(got, s.observe(text))
	}
	assert.Equal(t, []bool{false, false, false, false, true, false}, got)

	s.reset()
	assert.Empty(t, s.lastCode)
	assert.Zero(t, s.count)
}

func TestStability_RequiredOne(t *testing.T) {
	s := stability{required: 1}
	assert.True(t, s.observe("A"))
	assert.True(t, s.observe("A"))
	assert.True(t, s.observe("B"))
}

// Confirmations equal, per maximal run of identical reads, the run length
// divided by the threshold.
func TestStability_RunProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("confirmations per run", prop.ForAll(
		func(seq []int, required int) bool {
			s := stability{required: required}
			got := 0
			for _, v := range seq {
				if s.observe(string(rune('A' + v))) {
					got++
				}
			}

			want, run := 0, 0
			for i, v := range seq {
				if i > 0 && seq[i-1] == v {
					run++
				} else {
					want += run / required
					run = 1
				}
			}
			want += run / required
			return got == want
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
