package handlers

import "testing"

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"abc":             "****",
		"sk-secret-value": "sk-s****",
		"çãõé-chave":      "çãõé****",
	}
	for in, want := range cases {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeepSecret(t *testing.T) {
	if got := keepSecret("çãõé****", "çãõé-chave"); got != "çãõé-chave" {
		t.Errorf("masked echo should keep stored secret, got %q", got)
	}
	if got := keepSecret("nova-chave", "antiga"); got != "nova-chave" {
		t.Errorf("new value should replace stored secret, got %q", got)
	}
}
