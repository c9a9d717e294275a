package script

import (
	"github.com/cryguy/raven/internal/core"
	"go.uber.org/zap"
)

// consoleJS builds a console object whose methods forward one formatted line
// to the Go-backed __console function.
const consoleJS = `
(function() {
	function format(arg) {
		if (typeof arg === 'string') return arg;
		if (arg instanceof Error) return String(arg);
		if (typeof arg === 'object' && arg !== null) {
			try { return JSON.stringify(arg); } catch (e) { return String(arg); }
		}
		return String(arg);
	}
	var levels = ['log', 'info', 'warn', 'error', 'debug'];
	var con = {};
	for (var i = 0; i < levels.length; i++) {
		(function(lvl) {
			con[lvl] = function() {
				var parts = [];
				for (var j = 0; j < arguments.length; j++) parts.push(format(arguments[j]));
				__console(lvl, parts.join(' '));
			};
		})(levels[i]);
	}
	con.trace = con.debug;
	con.assert = function(cond) {
		if (cond) return;
		var parts = ['Assertion failed'];
		for (var j = 1; j < arguments.length; j++) parts.push(format(arguments[j]));
		__console('error', parts.join(' '));
	};
	globalThis.console = con;
})();
`

// setupConsole installs console on rt. Output is captured in logs and
// mirrored to the package logger.
func setupConsole(rt core.JSRuntime, logs *core.LogBuffer) error {
	if err := rt.RegisterFunc("__console", func(level, message string) {
		logs.Add(level, message)
		logScript(level, message)
	}); err != nil {
		return err
	}
	return rt.Eval(consoleJS)
}

func logScript(level, message string) {
	l := core.Logger()
	field := zap.String("source", "script")
	switch level {
	case "debug":
		l.Debug(message, field)
	case "warn":
		l.Warn(message, field)
	case "error":
		l.Error(message, field)
	default:
		l.Info(message, field)
	}
}
