package templates

const PlotTemplate = `% Generated on {{.GeneratedDate}}
%
% Run ID: {{.RunID}}
% Name: {{.Name}}
% Description: {{.Description}}
% Checksum: {{.Checksum}}
% Seed: {{.Seed}}
% Started: {{.Started}}
% Finished: {{.Finished}}
% Task sets: {{.TotalSets}} ({{.TotalTasks}} tasks)
% Driver Version: {{.DriverVersion}}
%
% Host Information:
% Hostname: {{.Hostname}}
% CPU: {{.CPUVendor}} {{.CPUModel}} ({{.CPUThreads}} threads)
% Kernel: {{.KernelVersion}}
% OS: {{.OSInfo}}
%
% Requires \usepgfplotslibrary{groupplots,statistics}
\begin{tikzpicture}
	\begin{groupplot}[
		group style={group size=2 by 2, horizontal sep=2cm, vertical sep=3cm},
		width=0.5\textwidth,
		height=0.45\textwidth,
		boxplot/draw direction=y,
		xmin=0.5, xmax={{.XMax}},
		xtick={ {{.XTicks}} },
		xticklabels={ {{.XTickLabels}} },
		x tick label style={rotate=45, anchor=east, font=\scriptsize},
		ymajorgrids,
		grid style=dashed,
	]
{{range .Panels}}
	\nextgroupplot[title={ {{.Title}} }, ylabel={ {{.YLabel}} }{{if .YMin}}, ymin={{.YMin}}{{end}}]
{{range .Boxes}}
% {{.Label}}: n={{.Count}} mean={{.Mean}} outliers={{.OutlierCount}}
\addplot+[{{.Style}}, boxplot prepared={
		lower whisker={{.LowerWhisker}}, lower quartile={{.LowerQuartile}},
		median={{.Median}},
		upper quartile={{.UpperQuartile}}, upper whisker={{.UpperWhisker}},
		draw position={{.Position}}
	}]
{{if .Outliers}}  table[row sep=\\, y index=0] {
{{range .Outliers}}    {{.}} \\
{{end}}  };
{{else}}  coordinates {};
{{end}}{{end}}{{end}}
	\end{groupplot}
\end{tikzpicture}
`

type PlotData struct {
	GeneratedDate string
	RunID         int
	Name          string
	Description   string
	Checksum      string
	Seed          int64
	Started       string
	Finished      string
	TotalSets     int64
	TotalTasks    int64
	DriverVersion string
	Hostname      string
	CPUVendor     string
	CPUModel      string
	CPUThreads    int64
	KernelVersion string
	OSInfo        string
	XMax          string
	XTicks        string
	XTickLabels   string
	Panels        []PanelData
}

type PanelData struct {
	Key    string
	Title  string
	YLabel string
	YMin   string
	Boxes  []BoxData
}

type BoxData struct {
	Label         string
	Style         string
	Position      int
	Count         int
	Mean          string
	LowerWhisker  string
	LowerQuartile string
	Median        string
	UpperQuartile string
	UpperWhisker  string
	OutlierCount  int
	Outliers      []string
}
