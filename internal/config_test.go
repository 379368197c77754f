package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestJournalConfig_WatchNeedsDir(t *testing.T) {
	cfg := JournalConfig{Watch: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("watch without dir should fail")
	}
	cfg.Dir = "/tmp/journal"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("watch with dir should pass: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("journal with dir should be enabled")
	}
}

func TestJournalConfig_EmptyRename(t *testing.T) {
	tests := []struct {
		name    string
		renames map[string]string
		wantErr bool
	}{
		{"empty target", map[string]string{"Old Name": ""}, true},
		{"blank source", map[string]string{"  ": "New Name"}, true},
		{"both set", map[string]string{"Old Name": "New Name"}, false},
		{"none", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := JournalConfig{Renames: tt.renames}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(strings.ToLower(err.Error()), "renames") {
				t.Errorf("error %q does not name the field", err)
			}
		})
	}
}

func TestEngineConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EngineConfig
		wantErr bool
	}{
		{"defaults", NewDefaultConfig().Engine, false},
		{"zero max elements", EngineConfig{MaxElements: 0, BarycentreDesignatorMinLen: 2}, true},
		{"too many elements", EngineConfig{MaxElements: 40, BarycentreDesignatorMinLen: 2}, true},
		{"single char barycentre", EngineConfig{MaxElements: 5, BarycentreDesignatorMinLen: 1}, true},
		{"custom", EngineConfig{MaxElements: 7, BarycentreDesignatorMinLen: 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	custom := EngineConfig{MaxElements: 7, BarycentreDesignatorMinLen: 3}
	r := custom.Rules()
	if r.MaxElements != 7 || r.BarycentreDesignatorMinLen != 3 {
		t.Errorf("Rules() = %+v", r)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}
