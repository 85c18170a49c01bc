package mappings

type PanelMapping struct {
	Title      string
	ShortLabel string
	YLabel     string
	// YMin pins the lower axis limit; nil leaves it to pgfplots.
	YMin *float64
}

var (
	zero = 0.0
	one  = 1.0
)

var panelMappings = map[string]PanelMapping{
	"max_delay": {
		Title:      "Maximum delays",
		ShortLabel: "Max delay",
		YLabel:     "Delay [time units]",
		YMin:       &zero,
	},
	"per_period": {
		Title:      "MaxDelay / Period",
		ShortLabel: "Delay per period",
		YLabel:     "Delay / $T_i$",
		YMin:       &zero,
	},
	"per_other_exec_time": {
		Title:      "MaxDelay / max(ExecTimes)",
		ShortLabel: "Delay per blocking",
		YLabel:     "Delay / $\\max_{j \\neq i} C_j$",
		YMin:       &zero,
	},
	"response_over_exec": {
		Title:      "Max deadline miss",
		ShortLabel: "Response per exec time",
		YLabel:     "(Delay + $C_i$) / $C_i$",
		YMin:       &one,
	},
}

func GetPanelMapping(key string) (PanelMapping, bool) {
	m, ok := panelMappings[key]
	return m, ok
}
