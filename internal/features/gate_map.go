package features

// GateMapEntry records a client surface that is gated by a feature.
type GateMapEntry struct {
	Feature string
	Surface string
	Notes   string
}

// GateMap lists every client surface that consults a gate.
var GateMap = []GateMapEntry{
	{
		Feature: ProcessTracking.Name,
		Surface: "cmd/tracking.go#processes",
		Notes:   "Gates tock processes",
	},
	{
		Feature: TrayTimer.Name,
		Surface: "cmd/tracking.go#timer",
		Notes:   "Gates tock timer",
	},
	{
		Feature: TrayTimer.Name,
		Surface: "internal/tui/view.go#renderTimer",
		Notes:   "Hides the elapsed timer panel when disabled",
	},
	{
		Feature: CustomThemes.Name,
		Surface: "cmd/config.go#theme",
		Notes:   "Rejects themes outside light/dark unless enabled",
	},
	{
		Feature: TimeEntryTags.Name,
		Surface: "cmd/entries.go#start",
		Notes:   "Gates the --tag flag on entries start",
	},
}

// SurfacesFor returns the gate map entries for feature name.
func SurfacesFor(name string) []GateMapEntry {
	var out []GateMapEntry
	for _, e := range GateMap {
		if e.Feature == name {
			out = append(out, e)
		}
	}
	return out
}
