package graduation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSetLimitLessRisky(t *testing.T) {
	cases := []struct {
		current int64
		want    int64
	}{
		{300_000, 1_000_000},
		{500_000, 1_000_000},
		{1_000_000, 2_000_000},
		{4_500_000, 5_500_000},
		{5_000_000, 7_000_000},
		{9_000_000, 11_000_000},
		{10_000_000, 14_000_000},
		{20_000_000, 24_000_000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, nextSetLimit(TierLessRisky, tc.current), "current %d", tc.current)
	}
}

func TestNextSetLimitRisky(t *testing.T) {
	cases := []struct {
		current int64
		want    int64
	}{
		{500_000, 1_000_000},
		{1_000_000, 1_500_000},
		{4_500_000, 5_000_000},
		{5_000_000, 6_000_000},
		{10_000_000, 12_000_000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, nextSetLimit(TierRisky, tc.current), "current %d", tc.current)
	}
}

func TestClampToPreMatrix(t *testing.T) {
	assert.Equal(t, int64(800_000), clampToPreMatrix(1_000_000, 800_000))
	assert.Equal(t, int64(1_000_000), clampToPreMatrix(1_000_000, 2_000_000))
	// A zero ceiling means none was recorded.
	assert.Equal(t, int64(1_000_000), clampToPreMatrix(1_000_000, 0))
}
