package library

import "testing"

func TestPlace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		x, y, w, h int
		want       Placement
	}{
		{name: "fits", x: 100, y: 100, w: 1000, h: 800, want: Placement{Left: 112, Top: 112}},
		{name: "right edge", x: 900, y: 100, w: 1000, h: 800, want: Placement{Left: 568, Top: 112, FlipX: true}},
		{name: "bottom edge", x: 100, y: 700, w: 1000, h: 800, want: Placement{Left: 112, Top: 488, FlipY: true}},
		{name: "tiny viewport", x: 50, y: 50, w: 200, h: 100, want: Placement{FlipX: true, FlipY: true}},
		{name: "unknown viewport", x: 5, y: 5, want: Placement{Left: 17, Top: 17}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Place(tt.x, tt.y, tt.w, tt.h); got != tt.want {
				t.Fatalf("Place() = %+v, want %+v", got, tt.want)
			}
		})
	}
	if got := (Placement{Left: 4, Top: 9}).Style(); got != "left:4px;top:9px" {
		t.Fatalf("Style() = %q", got)
	}
}
