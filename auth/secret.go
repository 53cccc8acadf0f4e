package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

const (
	SecretEnvVar = "TODOBOX_TOKEN_SECRET"
)

// SecretFromEnv reads a base64 encoded secret from varname and then
// clears the variable, so child processes (or a careless debug dump of
// the environment) do not get to see it.
func SecretFromEnv(varname string, getfn func(string) string, setfn func(string, string) error) ([]byte, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	val := getfn(varname)
	if val == "" {
		return nil, fmt.Errorf("auth: environment variable %v is empty", varname)
	}
	setfn(varname, "")
	secret, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("auth: cannot decode %v as base64, cause %v", varname, err)
	} else if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("auth: decoded secret too short got %v expecting at least %v bytes", len(secret), MinSecretLen)
	}
	return secret, nil
}

// GenerateSecret returns a new random secret already base64 encoded,
// ready to be placed in the environment.
func GenerateSecret() (string, error) {
	var buf [MinSecretLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("auth: unable to generate secret, cause %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf[:]), nil
}
