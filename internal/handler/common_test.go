package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexToRowLabel(t *testing.T) {
	cases := map[int]string{
		0:   "A",
		1:   "B",
		25:  "Z",
		26:  "AA",
		27:  "AB",
		51:  "AZ",
		52:  "BA",
		701: "ZZ",
		702: "AAA",
	}
	for idx, want := range cases {
		assert.Equal(t, want, indexToRowLabel(idx), "index %d", idx)
	}
	assert.Equal(t, "", indexToRowLabel(-1))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []uint64{3, 1, 2}, dedupe([]uint64{3, 1, 3, 0, 2, 1}))
	assert.Empty(t, dedupe([]uint64{0, 0}))
}
