package enginetools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/voiceforge/voiceforge/vforge/agentdef"
	"github.com/voiceforge/voiceforge/vforge/engine"
	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// Named output formats for get_current_time. Voice agents read the result
// aloud, so the default leans spoken-friendly.
var timeFormats = map[string]string{
	"iso":      time.RFC3339,
	"date":     "2006-01-02",
	"time":     "15:04",
	"datetime": "Monday, January 2, 2006 at 3:04 PM",
}

// Common zones by region prefix, for get_timezones_for_region. Not the full
// tz database; covers the regions agents actually get asked about.
var regionZones = map[string][]string{
	"america": {
		"America/New_York", "America/Chicago", "America/Denver",
		"America/Los_Angeles", "America/Anchorage", "America/Phoenix",
		"America/Toronto", "America/Vancouver", "America/Mexico_City",
		"America/Sao_Paulo", "America/Argentina/Buenos_Aires", "America/Bogota",
	},
	"europe": {
		"Europe/London", "Europe/Dublin", "Europe/Paris", "Europe/Berlin",
		"Europe/Madrid", "Europe/Rome", "Europe/Amsterdam", "Europe/Stockholm",
		"Europe/Warsaw", "Europe/Athens", "Europe/Istanbul", "Europe/Moscow",
	},
	"asia": {
		"Asia/Tokyo", "Asia/Seoul", "Asia/Shanghai", "Asia/Hong_Kong",
		"Asia/Singapore", "Asia/Bangkok", "Asia/Kolkata", "Asia/Dubai",
		"Asia/Jerusalem", "Asia/Riyadh", "Asia/Jakarta", "Asia/Manila",
	},
	"africa": {
		"Africa/Cairo", "Africa/Lagos", "Africa/Nairobi",
		"Africa/Johannesburg", "Africa/Casablanca", "Africa/Accra",
	},
	"australia": {
		"Australia/Sydney", "Australia/Melbourne", "Australia/Brisbane",
		"Australia/Perth", "Australia/Adelaide",
	},
	"pacific": {
		"Pacific/Auckland", "Pacific/Honolulu", "Pacific/Fiji",
	},
}

func currentTimeTool(clock func() time.Time) engine.NativeTool {
	return engine.NativeTool{
		Name:        "get_current_time",
		Description: "Get the current date and time, optionally in a specific timezone and format",
		Args: []agentdef.ArgumentSpec{
			{
				Name:        "timezone",
				Description: "IANA timezone name, e.g. America/New_York. Defaults to UTC.",
				Type:        "string",
			},
			{
				Name:        "format",
				Description: "Output format: iso, date, time or datetime. Defaults to datetime.",
				Type:        "string",
				Enum:        []any{"iso", "date", "time", "datetime"},
			},
		},
		Run: func(_ context.Context, inv *engineports.Invocation) (any, error) {
			loc := time.UTC
			tz, _ := inv.Args["timezone"].(string)
			if tz != "" {
				var err error
				loc, err = time.LoadLocation(tz)
				if err != nil {
					return nil, fmt.Errorf("unknown timezone %q", tz)
				}
			}
			layout := timeFormats["datetime"]
			if f, ok := inv.Args["format"].(string); ok && f != "" {
				l, known := timeFormats[f]
				if !known {
					return nil, fmt.Errorf("unknown format %q, expected iso, date, time or datetime", f)
				}
				layout = l
			}
			now := clock().In(loc)
			return map[string]any{
				"current_time": now.Format(layout),
				"timezone":     loc.String(),
				"utc_offset":   now.Format("-07:00"),
			}, nil
		},
	}
}

func timezonesTool() engine.NativeTool {
	regions := make([]string, 0, len(regionZones))
	for r := range regionZones {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	return engine.NativeTool{
		Name:        "get_timezones_for_region",
		Description: "List common IANA timezones for a region such as America, Europe or Asia",
		Args: []agentdef.ArgumentSpec{
			{
				Name:        "region",
				Description: "Region name: " + strings.Join(regions, ", "),
				Type:        "string",
				Required:    true,
			},
		},
		Run: func(_ context.Context, inv *engineports.Invocation) (any, error) {
			region, _ := inv.Args["region"].(string)
			zones, ok := regionZones[strings.ToLower(strings.TrimSpace(region))]
			if !ok {
				return nil, fmt.Errorf("unknown region %q, expected one of: %s", region, strings.Join(regions, ", "))
			}
			return map[string]any{"region": strings.ToLower(region), "timezones": zones}, nil
		},
	}
}
