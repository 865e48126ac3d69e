package version

import "testing"

func TestGetDefaults(t *testing.T) {
	info := Get()
	if info.Version != "dev" {
		t.Errorf("Version = %q, want dev", info.Version)
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "v1.2.3", GitCommit: "3f2c1ab"}, "v1.2.3-3f2c1ab"},
		{Info{Version: "dev", GitCommit: "3f2c1ab", Modified: true}, "dev-3f2c1ab-modified"},
	}
	for _, c := range cases {
		if got := c.info.String(); got != c.want {
			t.Errorf("String(%+v) = %q, want %q", c.info, got, c.want)
		}
	}
}
