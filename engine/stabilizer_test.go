package engine

import "testing"

func TestStabilizer(t *testing.T) {
	tests := []struct {
		name  string
		steps []string
		want  []string
	}{
		{
			name:  "first hypothesis passes through",
			steps: []string{"  hello  "},
			want:  []string{"hello"},
		},
		{
			name:  "short safe text is emitted alone",
			steps: []string{"hello", "hello world"},
			want:  []string{"hello", "hello"},
		},
		{
			name:  "tail match extends safe text",
			steps: []string{"the quick brown", "the quick brown fox", "the quick brown fax jumps"},
			want:  []string{"the quick brown", "the quick brown fox", "the quick brown fax jumps"},
		},
		{
			name:  "safe text never shrinks",
			steps: []string{"the quick brown fox", "the quick brown fox", "the"},
			want:  []string{"the quick brown fox", "the quick brown fox", "the quick brown fox"},
		},
		{
			name:  "multibyte runes",
			steps: []string{"日本語のテキストです", "日本語のテキストでした", "日本語のテキストでしたよね"},
			want:  []string{"日本語のテキストです", "日本語のテキストで", "日本語のテキストでしたよね"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s stabilizer
			for i, step := range tt.steps {
				if got := s.Add(step); got != tt.want[i] {
					t.Errorf("step %d Add(%q) = %q, want %q", i, step, got, tt.want[i])
				}
			}
		})
	}
}

func TestTailMatch(t *testing.T) {
	tests := []struct {
		safe, text string
		want       int
	}{
		{"0123456789", "0123456789abc", 10},
		{"xx0123456789", "0123456789 0123456789", 21},
		{"0123456789", "012345678", -1},
		{"short", "short and long enough", -1},
		{"abcdefghij", "zzzzzzzzzzzz", -1},
	}
	for _, tt := range tests {
		if got := tailMatch([]rune(tt.safe), []rune(tt.text), tailMatchLength); got != tt.want {
			t.Errorf("tailMatch(%q, %q) = %d, want %d", tt.safe, tt.text, got, tt.want)
		}
	}
}
