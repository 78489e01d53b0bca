package utils

import "testing"

func TestStripCodeFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{"100555444", "100555444"},
		{"```\n100555444\n```", "100555444"},
		{"```text\n200123456\n```\n", "200123456"},
		{"  null  ", "null"},
		{"```", ""},
	}
	for _, c := range cases {
		if got := StripCodeFence(c.in); got != c.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
