package security

import "testing"

func TestSanitize(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"平文はそのまま", "今月の飲み会", "今月の飲み会"},
		{"scriptタグが除去される", `飲み会<script>alert("x")</script>`, "飲み会"},
		{"imgタグが除去される", `定例<img src=x onerror=alert(1)>会`, "定例会"},
		{"空文字列は空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("同一入力で冪等", func(t *testing.T) {
		input := `<b>告知</b>テキスト`
		once := sanitizer.Sanitize(input)
		twice := sanitizer.Sanitize(once)
		if once != twice {
			t.Errorf("not idempotent: %q vs %q", once, twice)
		}
	})
}
