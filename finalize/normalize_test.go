package finalize

import "testing"

func TestNormalize(t *testing.T) {
	for _, tt := range []struct{ input, want string }{
		{"", ""},
		{"   ", ""},
		{"hello", "Hello"},
		{"  hello world", "Hello world"},
		{"...and then", "And then"},
		{"  ...  and then", "And then"},
		{"... ... and then", "And then"},
		{"......x", "X"},
		{"Hello", "Hello"},
		{"élan", "Élan"},
		{"123 go", "123 go"},
		{"hello...", "Hello..."},
		{"hello  ", "Hello  "},
		{"...", ""},
		{"。", "。"},
	} {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", " ", "hello", "...", ". . .", "... ... x", "......x", " ...\t...hi",
		" ünïcode", "ǆemal", "\xff\xfebad", "ß", "hello world.", "¿qué?",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
