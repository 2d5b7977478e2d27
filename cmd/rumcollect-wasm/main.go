//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"codeberg.org/mutker/rumcollect/internal/browser"
	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/collect"
	"codeberg.org/mutker/rumcollect/internal/config"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/logger"
	"codeberg.org/mutker/rumcollect/internal/rum"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"codeberg.org/mutker/rumcollect/internal/schedule"
)

// configGlobal is the page global holding the collector options.
const (
	configGlobal = "rumcollectConfig"
	apiGlobal    = "rumcollect"
)

func main() {
	logger.InitWithWriter(browser.NewConsole(), true)

	var opts []config.Option
	if raw := js.Global().Get(configGlobal); raw.Truthy() {
		data := js.Global().Get("JSON").Call("stringify", raw).String()
		opts = append(opts, config.WithConfigData("json", []byte(data)))
	}

	cfg, err := config.Load(nil, opts...)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		return
	}
	if level, err := logger.ParseLevel(cfg.LogLevel.String()); err == nil {
		logger.SetLogLevel(level)
	}

	loop := schedule.NewLoop()
	platform, err := browser.NewPlatform(loop)
	if err != nil {
		logger.Error().Err(err).Msg("failed to bind to the page")
		return
	}

	loop.Post(func() {
		r := rum.Start(cfg.RUMConfig(), platform, nil)
		js.Global().Set(apiGlobal, exports(r, platform.Clock, loop))
		logger.Debug().Str("session_id", r.SessionID()).Msg("Collector started")
	})

	// Run keeps the module alive; every collector callback runs here.
	if err := loop.Run(context.Background()); err != nil {
		logger.Error().Err(err).Msg("loop stopped")
	}
}

// exports builds the page-facing API. Calls are posted to the loop; only
// getInternalContext answers synchronously.
func exports(r *rum.Rum, clk *clock.Clock, loop *schedule.Loop) map[string]any {
	post := func(fn func(args []js.Value)) js.Func {
		return js.FuncOf(func(_ js.Value, args []js.Value) any {
			copied := append([]js.Value(nil), args...)
			loop.Post(func() { fn(copied) })
			return nil
		})
	}

	return map[string]any{
		"startView": post(func(args []js.Value) {
			r.StartView(argString(args, 0), argString(args, 1))
		}),
		"addAction": post(func(args []js.Value) {
			r.AddAction(collect.Action{Name: argString(args, 0), Context: argObject(args, 1)})
		}),
		"addError": post(func(args []js.Value) {
			r.AddError(collect.Error{
				Message: argString(args, 0),
				Source:  collect.ErrorSourceCustom,
				Context: argObject(args, 1),
			})
		}),
		"completeRequest": post(func(args []js.Value) {
			if len(args) == 0 || !args[0].Truthy() {
				return
			}
			r.CompleteRequest(requestFromJS(args[0], clk))
		}),
		"renewSession": post(func([]js.Value) {
			r.RenewSession()
		}),
		"onEvent": post(func(args []js.Value) {
			if len(args) == 0 || args[0].Type() != js.TypeFunction {
				return
			}
			cb := args[0]
			lifecycle.On(r.LifeCycle(), lifecycle.EventAssembled, func(e rumevent.Event) {
				data, err := json.Marshal(e)
				if err != nil {
					logger.Warn().Err(err).Str("event_id", e.ID).Msg("Failed to encode event")
					return
				}
				cb.Invoke(string(data))
			})
		}),
		"getInternalContext": js.FuncOf(func(_ js.Value, args []js.Value) any {
			at := clk.RelativeNow()
			if len(args) > 0 && args[0].Type() == js.TypeNumber {
				at = clock.RelativeTime(args[0].Float())
			}
			ctx, ok := r.InternalContext(at)
			if !ok {
				return js.Undefined()
			}
			data, err := json.Marshal(ctx)
			if err != nil {
				return js.Undefined()
			}
			return js.Global().Get("JSON").Call("parse", string(data))
		}),
		"stop": post(func([]js.Value) {
			r.Stop()
			loop.Close()
		}),
	}
}

func requestFromJS(v js.Value, clk *clock.Clock) lifecycle.RequestCompleteEvent {
	kind := lifecycle.RequestFetch
	if v.Get("kind").String() == string(lifecycle.RequestXHR) {
		kind = lifecycle.RequestXHR
	}

	req := lifecycle.RequestCompleteEvent{
		Kind:        kind,
		URL:         v.Get("url").String(),
		Method:      v.Get("method").String(),
		Status:      v.Get("status").Int(),
		StartClocks: clk.RelativeToClocks(clock.RelativeTime(v.Get("startTime").Float())),
		Duration:    clock.Duration(v.Get("duration").Float()),
	}
	if size := v.Get("size"); size.Type() == js.TypeNumber {
		n := int64(size.Float())
		req.ResponseSize = &n
	}
	return req
}

func argString(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func argObject(args []js.Value, i int) map[string]any {
	if i >= len(args) || args[i].Type() != js.TypeObject {
		return nil
	}
	data := js.Global().Get("JSON").Call("stringify", args[i]).String()
	var out map[string]any
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil
	}
	return out
}
