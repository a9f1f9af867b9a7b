package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"

	"github.com/lvmk/mcp-of-mcps/internal/registry"
)

// callRecord is one observed downstream tool response, captured for
// the post-run schema-inference drain.
type callRecord struct {
	ToolName    string
	RawResponse any
}

// execution is the per-Run state: a fresh interpreter, its bound
// toolOutputCache mirror, and the servers snapshot it was built
// against. Nothing here is shared across concurrent Run calls.
type execution struct {
	sb      *Sandbox
	ctx     context.Context
	servers []*registry.ServerInfo
	byName  map[string]*registry.ServerInfo

	vm       *goja.Runtime
	cacheObj *goja.Object
	cache    map[string][]callRecord

	modules map[string]goja.Value // require() memoization within this run
}

func newExecution(sb *Sandbox, ctx context.Context, servers []*registry.ServerInfo) *execution {
	byName := make(map[string]*registry.ServerInfo, len(servers))
	for _, s := range servers {
		byName[s.Name] = s
	}
	return &execution{
		sb:      sb,
		ctx:     ctx,
		servers: servers,
		byName:  byName,
		cache:   make(map[string][]callRecord),
		modules: make(map[string]goja.Value),
	}
}

// run compiles and executes code in a fresh, isolated runtime and
// returns the JSON encoding of whatever value the script's module
// binding ends up exporting. A script that exports nothing yields null.
func (e *execution) run(code string) (json.RawMessage, error) {
	vm := goja.New()
	e.vm = vm

	vm.Set("console", e.buildConsole())
	vm.Set("__invokeTool", e.invokeTool)
	vm.Set("require", e.require)

	module := vm.NewObject()
	initialExports := vm.NewObject()
	_ = module.Set("exports", initialExports)
	vm.Set("module", module)

	e.cacheObj = vm.NewObject()

	if _, err := vm.RunString(code); err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	exported := module.Get("exports")
	if obj, ok := exported.(*goja.Object); ok && obj == initialExports && len(obj.Keys()) == 0 {
		exported = goja.Undefined()
	}
	value, err := e.resolveExport(exported)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode exported value: %w", err)
	}
	return encoded, nil
}

// resolveExport unwraps a promise export that has already settled, or
// passes through any other value unchanged. No event loop is run: a
// promise still pending when the script returns is reported as an
// error.
func (e *execution) resolveExport(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) {
		return nil, nil
	}
	if p, ok := v.Export().(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStateFulfilled:
			return p.Result().Export(), nil
		case goja.PromiseStateRejected:
			return nil, fmt.Errorf("exported promise rejected: %v", p.Result())
		default:
			return nil, fmt.Errorf("exported promise did not settle")
		}
	}
	return v.Export(), nil
}

// buildConsole is the script's only ambient I/O: console.log/error
// forward to the host's logger, nothing else.
func (e *execution) buildConsole() *goja.Object {
	console := e.vm.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		log.Print("sandbox: ", formatArgs(call.Arguments))
		return goja.Undefined()
	}
	_ = console.Set("log", logFn)
	_ = console.Set("error", logFn)
	_ = console.Set("warn", logFn)
	return console
}

func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%v", a.Export())
	}
	return strings.Join(parts, " ")
}

// require resolves exactly three kinds of module path, per the
// isolation contract: the two injected mock identifiers, and a stub
// file path rooted under the sandbox directory. Everything else is a
// forbidden require and raises a JS exception.
func (e *execution) require(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		panic(e.vm.NewTypeError("require expects a module path"))
	}
	path := call.Arguments[0].String()

	switch path {
	case "serversInfo":
		return e.serversInfoValue()
	case "toolOutputCache":
		return e.cacheObj
	}

	if cached, ok := e.modules[path]; ok {
		return cached
	}

	resolved, err := e.resolveStubPath(path)
	if err != nil {
		panic(e.vm.NewGoError(err))
	}

	body, err := os.ReadFile(resolved)
	if err != nil {
		panic(e.vm.NewGoError(fmt.Errorf("require %q: %w", path, err)))
	}

	wrapped := "(function(module, exports, require, __invokeTool) {\n" + string(body) + "\n})"
	fn, err := e.vm.RunString(wrapped)
	if err != nil {
		panic(e.vm.NewGoError(fmt.Errorf("compile %q: %w", path, err)))
	}
	call2, ok := goja.AssertFunction(fn)
	if !ok {
		panic(e.vm.NewTypeError("stub module did not compile to a function"))
	}

	mod := e.vm.NewObject()
	_ = mod.Set("exports", e.vm.NewObject())

	if _, err := call2(goja.Undefined(), mod, mod.Get("exports"), e.vm.ToValue(e.require), e.vm.ToValue(e.invokeTool)); err != nil {
		panic(e.vm.NewGoError(fmt.Errorf("execute %q: %w", path, err)))
	}

	result := mod.Get("exports")
	e.modules[path] = result
	return result
}

// resolveStubPath maps a require() argument to an absolute path
// beneath the sandbox root, rejecting any path that escapes it.
func (e *execution) resolveStubPath(path string) (string, error) {
	clean := strings.TrimPrefix(path, "./")
	full := filepath.Join(e.sb.root, clean)

	rootAbs, err := filepath.Abs(e.sb.root)
	if err != nil {
		return "", err
	}
	fullAbs, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(fullAbs, rootAbs+string(filepath.Separator)) && fullAbs != rootAbs {
		return "", fmt.Errorf("require %q escapes the sandbox root", path)
	}
	return fullAbs, nil
}

// serversInfoValue builds a frozen snapshot of connection state,
// keyed by server name, for the injected serversInfo mock.
func (e *execution) serversInfoValue() goja.Value {
	obj := e.vm.NewObject()
	for _, s := range e.servers {
		entry := e.vm.NewObject()
		_ = entry.Set("connected", s.Handle != nil)
		_ = entry.Set("instructions", s.Instructions)
		_ = obj.Set(s.Name, entry)
	}

	if freeze, ok := goja.AssertFunction(e.vm.GlobalObject().Get("Object").ToObject(e.vm).Get("freeze")); ok {
		_, _ = freeze(goja.Undefined(), obj)
	}
	return obj
}

// invokeTool is the host function every generated stub calls through.
// It dispatches synchronously to the caller and records the raw
// response for the post-run schema-inference drain.
func (e *execution) invokeTool(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 2 {
		panic(e.vm.NewTypeError("__invokeTool expects (serverName, toolName, args)"))
	}
	server := call.Arguments[0].String()
	toolName := call.Arguments[1].String()

	var args map[string]any
	if len(call.Arguments) > 2 && !goja.IsUndefined(call.Arguments[2]) {
		if m, ok := call.Arguments[2].Export().(map[string]any); ok {
			args = m
		}
	}

	result, err := e.sb.caller.CallTool(e.ctx, server, toolName, args)
	if err != nil {
		panic(e.vm.NewGoError(err))
	}

	e.cache[server] = append(e.cache[server], callRecord{ToolName: toolName, RawResponse: result})

	return e.vm.ToValue(result)
}
