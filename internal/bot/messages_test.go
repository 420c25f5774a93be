package bot

import "testing"

func TestRoundKcal_保存時と同じ丸めになる(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{799.4, 799},
		{799.5, 800},
		// 0.5未満の最大のfloat64。0.5を足してから切り捨てると1になってしまう
		{0.49999999999999994, 0},
		{-120, 0},
	}
	for _, c := range cases {
		if got := roundKcal(c.in); got != c.want {
			t.Errorf("roundKcal(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
