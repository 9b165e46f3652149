package compact

import "testing"

func TestRenderProgressClampsAndFills(t *testing.T) {
	cases := []struct {
		percent float64
		want    string
	}{
		{percent: -5, want: "[--------]   0.0%"},
		{percent: 50, want: "[####----]  50.0%"},
		{percent: 150, want: "[########] 100.0%"},
	}
	for _, tc := range cases {
		if got := RenderProgress(tc.percent, 8); got != tc.want {
			t.Fatalf("RenderProgress(%v) = %q, want %q", tc.percent, got, tc.want)
		}
	}
}

func TestRenderStageLine(t *testing.T) {
	if got := RenderStageLine("resolving", "playlist", 0, 0); got != "[resolving] playlist" {
		t.Fatalf("unexpected indeterminate line: %q", got)
	}
	want := "[downloading] [########--------]  50.0% (3/6)"
	if got := RenderStageLine("downloading", "fetch_segments", 3, 6); got != want {
		t.Fatalf("unexpected determinate line:\n got %q\nwant %q", got, want)
	}
}
