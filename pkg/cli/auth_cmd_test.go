package cli

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthTokenCmd(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantSub    string
		wantAdmin  bool
		wantErr    bool
		errContain string
	}{
		{
			name:    "basic token",
			args:    []string{"--principal", "etl_admin", "--secret", "test-secret"},
			wantSub: "etl_admin",
		},
		{
			name:      "admin token",
			args:      []string{"--principal", "etl_admin", "--secret", "test-secret", "--admin"},
			wantSub:   "etl_admin",
			wantAdmin: true,
		},
		{
			name:    "custom expiry",
			args:    []string{"--principal", "scheduler", "--secret", "test-secret", "--expires", "48h"},
			wantSub: "scheduler",
		},
		{
			name:       "missing principal",
			args:       []string{"--secret", "test-secret"},
			wantErr:    true,
			errContain: "required",
		},
		{
			name:       "missing secret",
			args:       []string{"--principal", "etl_admin"},
			wantErr:    true,
			errContain: "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())

			cmd := newAuthTokenCmd()
			cmd.SetArgs(tt.args)

			restore := captureStdout(t)
			err := cmd.Execute()
			out := restore()

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContain != "" {
					assert.Contains(t, err.Error(), tt.errContain)
				}
				return
			}
			require.NoError(t, err)

			// The token lands in the config as well as on stdout.
			cfg, err := LoadUserConfig()
			require.NoError(t, err)

			profileName := cfg.CurrentProfile
			if profileName == "" {
				profileName = "default"
			}
			p, ok := cfg.Profiles[profileName]
			require.True(t, ok, "profile %q should exist", profileName)
			require.NotEmpty(t, p.Token)
			assert.Contains(t, out, p.Token)

			parsed, err := jwt.Parse(p.Token, func(token *jwt.Token) (interface{}, error) {
				return []byte("test-secret"), nil
			})
			require.NoError(t, err)
			require.True(t, parsed.Valid)

			claims, ok := parsed.Claims.(jwt.MapClaims)
			require.True(t, ok)
			assert.Equal(t, tt.wantSub, claims["sub"])

			if tt.wantAdmin {
				assert.Equal(t, true, claims["admin"])
			} else {
				assert.Nil(t, claims["admin"])
			}

			assert.NotNil(t, claims["iat"])
			assert.NotNil(t, claims["exp"])
		})
	}
}

func TestAuthTokenCmd_SaveToExistingProfile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &UserConfig{
		CurrentProfile: "staging",
		Profiles: map[string]Profile{
			"staging": {
				Host:   "http://localhost:8080",
				APIKey: "dlk_test",
			},
		},
	}
	require.NoError(t, SaveUserConfig(cfg))

	cmd := newAuthTokenCmd()
	cmd.SetArgs([]string{"--principal", "etl_admin", "--secret", "my-secret"})

	restore := captureStdout(t)
	err := cmd.Execute()
	restore()
	require.NoError(t, err)

	// The token is added without clobbering the rest of the profile.
	loaded, err := LoadUserConfig()
	require.NoError(t, err)

	p := loaded.Profiles["staging"]
	assert.Equal(t, "http://localhost:8080", p.Host)
	assert.Equal(t, "dlk_test", p.APIKey)
	require.NotEmpty(t, p.Token)

	parsed, err := jwt.Parse(p.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("my-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "etl_admin", claims["sub"])
}
