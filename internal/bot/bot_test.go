package bot

import (
	"strings"
	"testing"
)

func TestWebhookSecretToken(t *testing.T) {
	cases := []struct {
		token string
		want  string
	}{
		{"123456:ABCdefGHIjklMNO", "secure_webhook_token_jklMNO"},
		{"abc", "secure_webhook_token_abc"},
		{"123456", "secure_webhook_token_123456"},
		{"", "secure_webhook_token_"},
	}

	for _, tc := range cases {
		if got := webhookSecretToken(tc.token); got != tc.want {
			t.Errorf("webhookSecretToken(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}
}

func TestWebhookSecretTokenDoesNotLeakWholeToken(t *testing.T) {
	token := "123456:ABCdefGHIjklMNOpqrSTUvwx"
	secret := webhookSecretToken(token)
	if strings.Contains(secret, token) {
		t.Errorf("secret %q must not embed the full bot token", secret)
	}
}
