package transform

import (
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"driftline/internal/domain"
)

const (
	hookFunctionName = "transform"

	defaultHookMaxSteps = uint64(100_000)
	defaultHookTimeout  = 2 * time.Second
	maxHookSourceBytes  = 512 * 1024
	maxHookOutputBytes  = 256 * 1024
)

var (
	hookMaxSteps = defaultHookMaxSteps
	hookTimeout  = defaultHookTimeout
)

// SetHookLimits overrides the step cap and wall-clock timeout applied to
// hooks compiled afterwards. Zero values keep the current limit. Call during
// startup, before any hooks run.
func SetHookLimits(maxSteps uint64, timeout time.Duration) {
	if maxSteps > 0 {
		hookMaxSteps = maxSteps
	}
	if timeout > 0 {
		hookTimeout = timeout
	}
}

// Hook is a compiled per-dataset Starlark transform. The source must define
// transform(row) taking a dict of column→string and returning a dict
// (possibly modified) or None to drop the row. Execution is sandboxed: no
// load statements, a step cap and a wall-clock timeout per call.
type Hook struct {
	fn       starlark.Callable
	maxSteps uint64
	timeout  time.Duration
}

// CompileHook loads a hook source and resolves its transform function.
func CompileHook(source string) (*Hook, error) {
	if len(source) > maxHookSourceBytes {
		return nil, domain.ErrValidation("transform hook exceeds %d bytes", maxHookSourceBytes)
	}

	thread := &starlark.Thread{Name: "transform-hook-load"}
	thread.SetMaxExecutionSteps(hookMaxSteps)

	var globals starlark.StringDict
	if err := runWithTimeout(thread, hookTimeout, func() error {
		loaded, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, "transform.star", source, nil)
		if err != nil {
			return err
		}
		globals = loaded
		return nil
	}); err != nil {
		return nil, domain.ErrValidation("load transform hook: %v", err)
	}

	fn, ok := globals[hookFunctionName]
	if !ok {
		return nil, domain.ErrValidation("transform hook must define a %s(row) function", hookFunctionName)
	}
	callable, ok := fn.(starlark.Callable)
	if !ok {
		return nil, domain.ErrValidation("%s in transform hook is not a function", hookFunctionName)
	}

	return &Hook{
		fn:       callable,
		maxSteps: hookMaxSteps,
		timeout:  hookTimeout,
	}, nil
}

// Apply runs transform(row) for one row. keep is false when the hook returned
// None. Returned dict values may be strings, ints, floats, bools or None; all
// map back to string cells.
func (h *Hook) Apply(row map[string]string) (out map[string]string, keep bool, err error) {
	dict := starlark.NewDict(len(row))
	for k, v := range row {
		// SetKey on a fresh dict with string keys cannot fail.
		_ = dict.SetKey(starlark.String(k), starlark.String(v))
	}

	thread := &starlark.Thread{Name: "transform-hook-eval"}
	thread.SetMaxExecutionSteps(h.maxSteps)

	var result starlark.Value
	if err := runWithTimeout(thread, h.timeout, func() error {
		callResult, err := starlark.Call(thread, h.fn, starlark.Tuple{dict}, nil)
		if err != nil {
			return err
		}
		result = callResult
		return nil
	}); err != nil {
		return nil, false, err
	}

	if result == starlark.None {
		return nil, false, nil
	}
	resDict, ok := result.(*starlark.Dict)
	if !ok {
		return nil, false, domain.ErrValidation("transform hook must return a dict or None, got %s", result.Type())
	}

	out = make(map[string]string, resDict.Len())
	total := 0
	for _, item := range resDict.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return nil, false, domain.ErrValidation("transform hook returned non-string key %s", item[0].String())
		}
		value, err := cellValue(item[1])
		if err != nil {
			return nil, false, err
		}
		total += len(key) + len(value)
		if total > maxHookOutputBytes {
			return nil, false, domain.ErrValidation("transform hook output exceeds %d bytes", maxHookOutputBytes)
		}
		out[key] = value
	}
	return out, true, nil
}

// cellValue converts a hook-returned scalar into a cell string. None becomes
// an empty cell.
func cellValue(v starlark.Value) (string, error) {
	switch val := v.(type) {
	case starlark.String:
		return string(val), nil
	case starlark.Int, starlark.Float, starlark.Bool:
		return val.String(), nil
	case starlark.NoneType:
		return "", nil
	default:
		return "", domain.ErrValidation("transform hook returned unsupported value type %s", v.Type())
	}
}

// runWithTimeout guards a Starlark call with a wall-clock limit on top of the
// step cap. On timeout the thread is cancelled and the call's error drained.
func runWithTimeout(thread *starlark.Thread, timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		thread.Cancel("transform hook timed out")
		<-done
		return domain.ErrValidation("transform hook timed out after %s", timeout)
	}
}
