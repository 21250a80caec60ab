package pagination

import "testing"

func TestClampPageSize(t *testing.T) {
	cfg := PageSizeConfig{Default: 50, Max: 200}

	tests := []struct {
		name  string
		value int
		cfg   PageSizeConfig
		want  int
	}{
		{name: "zero uses default", value: 0, cfg: cfg, want: 50},
		{name: "negative uses default", value: -5, cfg: cfg, want: 50},
		{name: "within range passes through", value: 25, cfg: cfg, want: 25},
		{name: "above max clamps", value: 500, cfg: cfg, want: 200},
		{name: "no max keeps value", value: 500, cfg: PageSizeConfig{Default: 50}, want: 500},
		{name: "empty config floors at one", value: 0, cfg: PageSizeConfig{}, want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampPageSize(tc.value, tc.cfg); got != tc.want {
				t.Fatalf("ClampPageSize(%d) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}
