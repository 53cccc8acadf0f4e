package auth

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretFromEnv(t *testing.T) {
	const varname = "TODOBOX_TEST_SECRET"
	encoded, err := GenerateSecret()
	require.NoError(t, err)
	os.Setenv(varname, encoded)
	defer os.Unsetenv(varname)

	secret, err := SecretFromEnv(varname, nil, nil)
	require.NoError(t, err)
	assert.Len(t, secret, MinSecretLen)
	assert.Empty(t, os.Getenv(varname), "reading the secret should remove it from the environment")

	_, err = NewCodec(secret)
	assert.NoError(t, err)
}

func TestSecretFromEnvErrors(t *testing.T) {
	env := map[string]string{
		"EMPTY":    "",
		"NOTB64":   "***",
		"TOOSHORT": base64.StdEncoding.EncodeToString([]byte("abc")),
	}
	get := func(k string) string { return env[k] }
	set := func(k, v string) error { env[k] = v; return nil }
	for name := range env {
		_, err := SecretFromEnv(name, get, set)
		assert.Error(t, err, name)
	}
}
