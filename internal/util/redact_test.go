package util

import "testing"

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "bearer", in: "401: Bearer re_abc123 rejected", want: "401: Bearer <redacted> rejected"},
		{name: "api key kv", in: "bad request api_key=AIzaXYZ", want: "bad request <redacted_kv>"},
		{name: "password kv", in: "login failed password: hunter22", want: "login failed <redacted_kv>"},
		{name: "smtp auth", in: "AUTH PLAIN AGFsaWNlAHNlY3JldA== failed", want: "AUTH PLAIN <redacted> failed"},
		{name: "smtp 535 kept", in: "535 5.7.8 Username and Password not accepted", want: "535 5.7.8 Username and Password not accepted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactSecrets(tt.in); got != tt.want {
				t.Fatalf("RedactSecrets(%q)=%q want=%q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedactValue(t *testing.T) {
	if got := RedactValue("dial: app password abcd-efgh-ijkl rejected", "abcd-efgh-ijkl"); got != "dial: app password <redacted> rejected" {
		t.Fatalf("unexpected redaction: %q", got)
	}
	if got := RedactValue("abc", "ab"); got != "abc" {
		t.Fatalf("short secrets must not be replaced, got %q", got)
	}
}
