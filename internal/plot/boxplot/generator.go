package boxplot

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"offset-bench/internal/experiment"
	"offset-bench/internal/plot/boxplot/mappings"
	plotTemplate "offset-bench/internal/plot/boxplot/templates/plot"
	wrapperTemplate "offset-bench/internal/plot/boxplot/templates/wrapper"
	"offset-bench/internal/plot/database"

	"github.com/sirupsen/logrus"
)

type BoxplotGenerator struct {
	logger *logrus.Logger
}

func NewBoxplotGenerator(logger *logrus.Logger) *BoxplotGenerator {
	return &BoxplotGenerator{logger: logger}
}

type PlotOptions struct {
	// ShowOutliers draws the points beyond the whiskers.
	ShowOutliers bool
	// Panels selects panels by key; empty means all four.
	Panels []string
}

// Generate renders one box per heuristic in each panel and a figure wrapper
// that inputs the plot file.
func (g *BoxplotGenerator) Generate(meta *database.MetaData, metrics *experiment.Metrics, opts PlotOptions) (string, string, error) {
	if meta == nil {
		meta = &database.MetaData{}
	}
	g.logger.WithFields(logrus.Fields{
		"run_id":     meta.RunID,
		"heuristics": len(metrics.Labels),
		"outliers":   opts.ShowOutliers,
	}).Info("Generating boxplot")

	if len(metrics.Labels) == 0 {
		return "", "", fmt.Errorf("no heuristic results to plot for run %d", meta.RunID)
	}

	plotData, err := g.preparePlotData(meta, metrics, opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to prepare plot data: %w", err)
	}

	plotOutput, err := g.renderPlot(plotData)
	if err != nil {
		return "", "", fmt.Errorf("failed to render plot: %w", err)
	}

	wrapperOutput, err := g.renderWrapper(g.prepareWrapperData(meta, opts))
	if err != nil {
		return "", "", fmt.Errorf("failed to render wrapper: %w", err)
	}

	g.logger.Info("Boxplot generated successfully")
	return plotOutput, wrapperOutput, nil
}

func (g *BoxplotGenerator) preparePlotData(meta *database.MetaData, metrics *experiment.Metrics, opts PlotOptions) (*plotTemplate.PlotData, error) {
	selected := make(map[string]bool)
	for _, key := range opts.Panels {
		if _, ok := mappings.GetPanelMapping(key); !ok {
			return nil, fmt.Errorf("unknown panel: %s", key)
		}
		selected[key] = true
	}

	var panels []plotTemplate.PanelData
	for _, panel := range metrics.Panels() {
		if len(selected) > 0 && !selected[panel.Key] {
			continue
		}
		mapping, ok := mappings.GetPanelMapping(panel.Key)
		if !ok {
			return nil, fmt.Errorf("no mapping for panel %s", panel.Key)
		}
		data := plotTemplate.PanelData{
			Key:    panel.Key,
			Title:  mapping.Title,
			YLabel: mapping.YLabel,
		}
		if mapping.YMin != nil {
			data.YMin = formatNumber(*mapping.YMin)
		}

		for i, label := range metrics.Labels {
			stats, ok := ComputeBoxStats(panel.Values[i])
			if !ok {
				g.logger.WithFields(logrus.Fields{"panel": panel.Key, "heuristic": label}).Warn("No values, skipping box")
				continue
			}
			box := plotTemplate.BoxData{
				Label:         label,
				Style:         mappings.GetHeuristicStyle(i).ToTikzOptions(),
				Position:      i + 1,
				Count:         stats.Count,
				Mean:          formatNumber(stats.Mean),
				LowerWhisker:  formatNumber(stats.LowerWhisker),
				LowerQuartile: formatNumber(stats.LowerQuartile),
				Median:        formatNumber(stats.Median),
				UpperQuartile: formatNumber(stats.UpperQuartile),
				UpperWhisker:  formatNumber(stats.UpperWhisker),
				OutlierCount:  len(stats.Outliers),
			}
			if opts.ShowOutliers {
				for _, v := range stats.Outliers {
					box.Outliers = append(box.Outliers, formatNumber(v))
				}
			}
			data.Boxes = append(data.Boxes, box)
		}
		panels = append(panels, data)
	}

	ticks := make([]string, len(metrics.Labels))
	labels := make([]string, len(metrics.Labels))
	for i, label := range metrics.Labels {
		ticks[i] = strconv.Itoa(i + 1)
		labels[i] = "{" + EscapeTeX(label) + "}"
	}

	return &plotTemplate.PlotData{
		GeneratedDate: time.Now().Format("2006-01-02 15:04:05"),
		RunID:         meta.RunID,
		Name:          meta.Name,
		Description:   meta.Description,
		Checksum:      meta.Checksum,
		Seed:          meta.Seed,
		Started:       meta.Started,
		Finished:      meta.Finished,
		TotalSets:     meta.TotalSets,
		TotalTasks:    meta.TotalTasks,
		DriverVersion: meta.DriverVersion,
		Hostname:      meta.Hostname,
		CPUVendor:     meta.CPUVendor,
		CPUModel:      meta.CPUModel,
		CPUThreads:    meta.CPUThreads,
		KernelVersion: meta.KernelVersion,
		OSInfo:        meta.OSInfo,
		XMax:          formatNumber(float64(len(metrics.Labels)) + 0.5),
		XTicks:        strings.Join(ticks, ","),
		XTickLabels:   strings.Join(labels, ","),
		Panels:        panels,
	}, nil
}

func (g *BoxplotGenerator) prepareWrapperData(meta *database.MetaData, opts PlotOptions) *wrapperTemplate.WrapperData {
	caption := "Worst-case queuing delays per heuristic"
	if meta.TotalSets > 0 {
		caption = fmt.Sprintf("%s over %d task sets", caption, meta.TotalSets)
	}
	if !opts.ShowOutliers {
		caption += ", outliers hidden"
	}
	return &wrapperTemplate.WrapperData{
		GeneratedDate: time.Now().Format("2006-01-02 15:04:05"),
		RunID:         meta.RunID,
		PlotFileName:  PlotFileName(meta.RunID, opts.ShowOutliers),
		ShortCaption:  "Queuing delays",
		Caption:       caption,
	}
}

func PlotFileName(runID int, outliers bool) string {
	if outliers {
		return fmt.Sprintf("run-%d-boxplot-outliers.tikz", runID)
	}
	return fmt.Sprintf("run-%d-boxplot.tikz", runID)
}

func (g *BoxplotGenerator) renderPlot(data *plotTemplate.PlotData) (string, error) {
	tmpl, err := template.New("plot").Parse(plotTemplate.PlotTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse plot template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute plot template: %w", err)
	}
	return buf.String(), nil
}

func (g *BoxplotGenerator) renderWrapper(data *wrapperTemplate.WrapperData) (string, error) {
	tmpl, err := template.New("wrapper").Parse(wrapperTemplate.WrapperTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse wrapper template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute wrapper template: %w", err)
	}
	return buf.String(), nil
}

// formatNumber prints a plain decimal pgfplots can parse, without
// exponent notation or trailing zeros.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

var texReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

func EscapeTeX(s string) string {
	return texReplacer.Replace(s)
}
