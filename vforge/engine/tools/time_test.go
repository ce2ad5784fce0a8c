package enginetools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)
}

func TestGetCurrentTimeDefaultsToUTC(t *testing.T) {
	tool := currentTimeTool(fixedClock)
	out, err := tool.Run(context.Background(), &engineports.Invocation{Args: map[string]any{}})
	require.NoError(t, err)

	payload := out.(map[string]any)
	assert.Equal(t, "UTC", payload["timezone"])
	assert.Contains(t, payload["current_time"], "March 14, 2026")
}

func TestGetCurrentTimeHonorsTimezoneAndFormat(t *testing.T) {
	tool := currentTimeTool(fixedClock)
	out, err := tool.Run(context.Background(), &engineports.Invocation{Args: map[string]any{
		"timezone": "America/New_York",
		"format":   "iso",
	}})
	require.NoError(t, err)

	payload := out.(map[string]any)
	assert.Equal(t, "America/New_York", payload["timezone"])
	// 15:09 UTC is 11:09 in New York in March (EDT)
	assert.Equal(t, "2026-03-14T11:09:00-04:00", payload["current_time"])
}

func TestGetCurrentTimeRejectsUnknownZone(t *testing.T) {
	tool := currentTimeTool(fixedClock)
	_, err := tool.Run(context.Background(), &engineports.Invocation{Args: map[string]any{
		"timezone": "Mars/Olympus_Mons",
	}})
	require.Error(t, err)
}

func TestGetTimezonesForRegion(t *testing.T) {
	tool := timezonesTool()
	out, err := tool.Run(context.Background(), &engineports.Invocation{Args: map[string]any{
		"region": "Europe",
	}})
	require.NoError(t, err)

	payload := out.(map[string]any)
	zones := payload["timezones"].([]string)
	assert.Contains(t, zones, "Europe/Berlin")

	_, err = tool.Run(context.Background(), &engineports.Invocation{Args: map[string]any{
		"region": "Atlantis",
	}})
	require.Error(t, err)
}

type fakeCallControl struct {
	ended  bool
	reason string
}

func (f *fakeCallControl) EndCall(_ context.Context, reason string) error {
	f.ended = true
	f.reason = reason
	return nil
}

func TestEndCall(t *testing.T) {
	ctrl := &fakeCallControl{}
	tool := endCallTool(ctrl)

	out, err := tool.Run(context.Background(), &engineports.Invocation{Args: map[string]any{
		"reason": "customer said goodbye",
	}})
	require.NoError(t, err)
	assert.True(t, ctrl.ended)
	assert.Equal(t, "customer said goodbye", ctrl.reason)
	assert.Equal(t, "call ended", out.(map[string]any)["message"])
}

func TestEndCallWithoutControl(t *testing.T) {
	tool := endCallTool(nil)
	_, err := tool.Run(context.Background(), &engineports.Invocation{Args: map[string]any{}})
	require.Error(t, err)
}

func TestNativesRegistersAll(t *testing.T) {
	n := Natives(nil)
	assert.Contains(t, n, "get_current_time")
	assert.Contains(t, n, "get_timezones_for_region")
	assert.Contains(t, n, "end_call")
}
