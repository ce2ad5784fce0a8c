package enginetools

import (
	"context"
	"fmt"

	"github.com/voiceforge/voiceforge/vforge/agentdef"
	"github.com/voiceforge/voiceforge/vforge/engine"
	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// CallControl is what the hosting runtime exposes for in-call actions. The
// engine never manipulates the call session directly.
type CallControl interface {
	EndCall(ctx context.Context, reason string) error
}

func endCallTool(ctrl CallControl) engine.NativeTool {
	return engine.NativeTool{
		Name:        "end_call",
		Description: "End the current call gracefully. Use after the conversation has concluded.",
		Args: []agentdef.ArgumentSpec{
			{
				Name:        "reason",
				Description: "Short reason for ending the call",
				Type:        "string",
			},
		},
		Run: func(ctx context.Context, inv *engineports.Invocation) (any, error) {
			if ctrl == nil {
				return nil, fmt.Errorf("call control is not available in this session")
			}
			reason, _ := inv.Args["reason"].(string)
			if reason == "" {
				reason = "conversation completed"
			}
			if err := ctrl.EndCall(ctx, reason); err != nil {
				return nil, fmt.Errorf("end call: %w", err)
			}
			return map[string]any{"message": "call ended", "reason": reason}, nil
		},
	}
}
