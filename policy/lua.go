package policy

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

type (
	// luaChecker runs a `check(req)` function defined by a script.
	//
	// The script is compiled once, but every call gets its own lua.LState
	// so concurrent registrations never share interpreter state.
	luaChecker struct {
		name    string
		proto   *lua.FunctionProto
		timeout time.Duration
	}

	verdict struct {
		Allow  bool
		Reason string
	}
)

const (
	DefaultLuaTimeout = time.Second

	checkFunction = "check"
	defaultReason = "Registration rejected"
)

// LoadLua reads a policy script from disk, see CompileLua
func LoadLua(path string, timeout time.Duration) (Checker, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: unable to read %v, cause %w", path, err)
	}
	return CompileLua(path, string(buf), timeout)
}

// CompileLua builds a Checker out of a Lua script that defines a global
// function `check(req)`. The req table has username, email and password
// fields. The function must return a table `{allow = bool, reason =
// string}`, a bare boolean (optionally followed by a reason) is also
// accepted.
func CompileLua(name, code string, timeout time.Duration) (Checker, error) {
	chunk, err := parse.Parse(strings.NewReader(code), name)
	if err != nil {
		return nil, fmt.Errorf("policy: unable to parse %v, cause %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("policy: unable to compile %v, cause %w", name, err)
	}
	if timeout <= 0 {
		timeout = DefaultLuaTimeout
	}
	lc := &luaChecker{name: name, proto: proto, timeout: timeout}
	// fail early if the script does not define check
	L, cancel := lc.newState(context.Background())
	defer cancel()
	defer L.Close()
	if _, err := lc.lookupCheck(L); err != nil {
		return nil, err
	}
	return lc, nil
}

func (lc *luaChecker) Check(ctx context.Context, reg Registration) error {
	L, cancel := lc.newState(ctx)
	defer cancel()
	defer L.Close()
	fn, err := lc.lookupCheck(L)
	if err != nil {
		return err
	}
	req := L.NewTable()
	L.SetField(req, "username", lua.LString(reg.Username))
	L.SetField(req, "email", lua.LString(reg.Email))
	L.SetField(req, "password", lua.LString(reg.Password))
	err = L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    2,
		Protect: true,
	}, req)
	if err != nil {
		return fmt.Errorf("policy: %v failed, cause %w", lc.name, err)
	}
	reason := L.Get(-1)
	result := L.Get(-2)
	L.Pop(2)

	var v verdict
	switch result := result.(type) {
	case *lua.LTable:
		if err := gluamapper.Map(result, &v); err != nil {
			return fmt.Errorf("policy: %v returned an invalid table, cause %w", lc.name, err)
		}
	case lua.LBool:
		v.Allow = bool(result)
		if s, ok := reason.(lua.LString); ok {
			v.Reason = string(s)
		}
	default:
		return fmt.Errorf("policy: %v returned %v, expecting a table or boolean", lc.name, result.Type())
	}
	if v.Allow {
		return nil
	}
	if v.Reason == "" {
		v.Reason = defaultReason
	}
	return Rejected{Reason: v.Reason}
}

func (lc *luaChecker) newState(ctx context.Context) (*lua.LState, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, lc.timeout)
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	L.SetContext(ctx)
	injectSandboxLibs(L)
	return L, cancel
}

func (lc *luaChecker) lookupCheck(L *lua.LState) (*lua.LFunction, error) {
	L.Push(L.NewFunctionFromProto(lc.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("policy: unable to load %v, cause %w", lc.name, err)
	}
	fn, ok := L.GetGlobal(checkFunction).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("policy: %v does not define a %v function", lc.name, checkFunction)
	}
	return fn, nil
}

// injectSandboxLibs loads the few libs a policy needs, nothing that can
// touch the filesystem or load other code.
func injectSandboxLibs(L *lua.LState) {
	for _, pair := range []struct {
		n string
		f lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(pair.f),
			NRet:    0,
			Protect: true,
		}, lua.LString(pair.n)); err != nil {
			panic(err)
		}
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}
