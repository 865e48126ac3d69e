package util

import "testing"

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"10MB", 10 * 1024 * 1024},
		{"512KB", 512 * 1024},
		{"2GB", 2 * 1024 * 1024 * 1024},
		{"1024", 1024},
		{"  10MB  ", 10 * 1024 * 1024},
		{"10mb", 10 * 1024 * 1024},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := ParseSize(tc.input, 0); got != tc.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}

	defaultVal := int64(5 * 1024 * 1024)
	if got := ParseSize("", defaultVal); got != defaultVal {
		t.Errorf("empty input: got %d, want default %d", got, defaultVal)
	}
	if got := ParseSize("not-a-size", defaultVal); got != defaultVal {
		t.Errorf("garbage input: got %d, want default %d", got, defaultVal)
	}
}

func TestPtrDeref(t *testing.T) {
	p := Ptr("transcribing")
	if *p != "transcribing" {
		t.Errorf("Ptr: got %q", *p)
	}
	if got := Deref(p); got != "transcribing" {
		t.Errorf("Deref: got %q", got)
	}
	var nilPtr *int
	if got := Deref(nilPtr); got != 0 {
		t.Errorf("Deref(nil): got %d, want 0", got)
	}
}
