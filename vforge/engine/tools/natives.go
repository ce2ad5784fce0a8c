// Package enginetools provides the built-in native tools every agent can
// enable from its definition: time utilities and call control.
package enginetools

import (
	"time"

	"github.com/voiceforge/voiceforge/vforge/engine"
)

// Natives returns the built-in tool implementations keyed by name, ready to
// hand to the agent factory. ctrl may be nil when the session has no call to
// control; end_call then fails at invocation time.
func Natives(ctrl CallControl) map[string]engine.NativeTool {
	return nativesWithClock(ctrl, time.Now)
}

func nativesWithClock(ctrl CallControl, clock func() time.Time) map[string]engine.NativeTool {
	out := map[string]engine.NativeTool{}
	for _, t := range []engine.NativeTool{
		currentTimeTool(clock),
		timezonesTool(),
		endCallTool(ctrl),
	} {
		out[t.Name] = t
	}
	return out
}
