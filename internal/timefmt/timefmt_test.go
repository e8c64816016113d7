package timefmt

import (
	"testing"
	"time"
)

func TestStamp(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+30*60)
	ts := time.Date(2025, time.December, 15, 9, 0, 0, 0, loc)
	got := Stamp(ts.UTC(), loc)
	want := "Dec 15, 2025, 9:00 AM (IST)"
	if got != want {
		t.Errorf("Stamp = %q, want %q", got, want)
	}
}

func TestRelative(t *testing.T) {
	now := time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{ago: 10 * time.Second, want: "just now"},
		{ago: 5 * time.Minute, want: "5 min ago"},
		{ago: 3 * time.Hour, want: "3 hr ago"},
		{ago: 26 * time.Hour, want: "1 day ago"},
		{ago: 80 * time.Hour, want: "3 days ago"},
	}
	for _, tc := range cases {
		if got := Relative(now, now.Add(-tc.ago)); got != tc.want {
			t.Errorf("Relative(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}
