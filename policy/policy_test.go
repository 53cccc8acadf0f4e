package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinLength(t *testing.T) {
	ctx := context.Background()
	p := MinLength(6)
	assert.NoError(t, p.Check(ctx, Registration{Password: "secret"}))
	assert.NoError(t, p.Check(ctx, Registration{Password: "sécrét"}), "length counts characters, not bytes")

	err := p.Check(ctx, Registration{Password: "short"})
	var rejected Rejected
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Password must be at least 6 characters", rejected.Reason)

	assert.NoError(t, MinLength(0).Check(ctx, Registration{}))
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	calls := 0
	count := CheckerFunc(func(context.Context, Registration) error {
		calls++
		return nil
	})
	c := Chain{count, nil, MinLength(6), count}
	assert.Error(t, c.Check(ctx, Registration{Password: "abc"}))
	assert.Equal(t, 1, calls, "chain must stop at the first error")

	assert.NoError(t, c.Check(ctx, Registration{Password: "abcdef"}))
	assert.Equal(t, 3, calls)
}

const domainPolicy = `
local function ends_with(s, suffix)
	return string.sub(s, -string.len(suffix)) == suffix
end

function check(req)
	if not ends_with(req.email, "@example.com") then
		return { allow = false, reason = "Only example.com accounts" }
	end
	if req.username == "root" then
		return false, "Reserved username"
	end
	if req.username == "nobody" then
		return false
	end
	return { allow = true }
end
`

func TestLuaPolicy(t *testing.T) {
	ctx := context.Background()
	p, err := CompileLua("domain.lua", domainPolicy, 0)
	require.NoError(t, err)

	assert.NoError(t, p.Check(ctx, Registration{Username: "alice", Email: "alice@example.com", Password: "x"}))

	for _, tc := range []struct {
		name   string
		reg    Registration
		reason string
	}{
		{"table verdict", Registration{Username: "bob", Email: "bob@example.org"}, "Only example.com accounts"},
		{"boolean with reason", Registration{Username: "root", Email: "root@example.com"}, "Reserved username"},
		{"boolean without reason", Registration{Username: "nobody", Email: "nobody@example.com"}, defaultReason},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := p.Check(ctx, tc.reg)
			var rejected Rejected
			require.True(t, errors.As(err, &rejected), "got %v", err)
			assert.Equal(t, tc.reason, rejected.Reason)
		})
	}
}

func TestLuaPolicyCompileErrors(t *testing.T) {
	_, err := CompileLua("broken.lua", "function check(", 0)
	assert.Error(t, err)

	_, err = CompileLua("nocheck.lua", "x = 1", 0)
	assert.Error(t, err)
}

func TestLuaPolicyRuntimeErrors(t *testing.T) {
	ctx := context.Background()
	p, err := CompileLua("bad.lua", `function check(req) return 42 end`, 0)
	require.NoError(t, err)
	err = p.Check(ctx, Registration{})
	require.Error(t, err)
	assert.False(t, errors.As(err, new(Rejected)), "script errors are not rejections")

	p, err = CompileLua("loop.lua", `function check(req) while true do end end`, 50*time.Millisecond)
	require.NoError(t, err)
	start := time.Now()
	assert.Error(t, p.Check(ctx, Registration{}))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLuaSandbox(t *testing.T) {
	ctx := context.Background()
	p, err := CompileLua("sandbox.lua", `
function check(req)
	return { allow = (dofile == nil and loadfile == nil and require == nil and os == nil and io == nil) }
end`, 0)
	require.NoError(t, err)
	assert.NoError(t, p.Check(ctx, Registration{}))
}

func TestLoadLua(t *testing.T) {
	file := filepath.Join(t.TempDir(), "policy.lua")
	require.NoError(t, os.WriteFile(file, []byte(`function check(req) return true end`), 0600))
	p, err := LoadLua(file, time.Second)
	require.NoError(t, err)
	assert.NoError(t, p.Check(context.Background(), Registration{}))

	_, err = LoadLua(filepath.Join(t.TempDir(), "missing.lua"), time.Second)
	assert.Error(t, err)
}
