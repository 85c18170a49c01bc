package templates

const WrapperTemplate = `% Generated on {{.GeneratedDate}}
% Run ID: {{.RunID}}
\begin{center}
    \begin{figure}[H]
    \centering
    \resizebox{1\linewidth}{!}{\input{./{{.PlotFileName}} }}
    \caption[{{.ShortCaption}}]{ {{.Caption}} }
    \label{fig:run-{{.RunID}}-delays}
    \end{figure}
\end{center}
`

type WrapperData struct {
	GeneratedDate string
	RunID         int
	PlotFileName  string
	ShortCaption  string
	Caption       string
}
