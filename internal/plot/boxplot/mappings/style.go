package mappings

type BoxStyle struct {
	Color     string
	FillColor string
	LineWidth string
	Mark      string
}

// HeuristicStyles is indexed by column position; coupled columns sit next
// to each other and share a hue.
var HeuristicStyles = []BoxStyle{
	{Color: "red", FillColor: "red!20", LineWidth: "thick", Mark: "triangle*"},
	{Color: "blue", FillColor: "blue!20", LineWidth: "thick", Mark: "square*"},
	{Color: "blue!60!black", FillColor: "blue!10", LineWidth: "thick", Mark: "square"},
	{Color: "green!70!black", FillColor: "green!20", LineWidth: "thick", Mark: "*"},
	{Color: "orange", FillColor: "orange!20", LineWidth: "thick", Mark: "diamond*"},
	{Color: "purple", FillColor: "purple!20", LineWidth: "thick", Mark: "pentagon*"},
	{Color: "brown", FillColor: "brown!20", LineWidth: "thick", Mark: "x"},
	{Color: "black", FillColor: "gray!20", LineWidth: "thick", Mark: "o"},
	{Color: "cyan!70!black", FillColor: "cyan!20", LineWidth: "thick", Mark: "star"},
	{Color: "magenta", FillColor: "magenta!20", LineWidth: "thick", Mark: "triangle"},
}

func GetHeuristicStyle(index int) BoxStyle {
	if index < 0 {
		index = 0
	}
	return HeuristicStyles[index%len(HeuristicStyles)]
}

func (bs BoxStyle) ToTikzOptions() string {
	options := "solid," + bs.Color
	if bs.FillColor != "" {
		options += ",fill=" + bs.FillColor
	}
	if bs.LineWidth != "" {
		options += "," + bs.LineWidth
	}
	if bs.Mark != "" && bs.Mark != "none" {
		options += ",mark=" + bs.Mark + ",mark options={scale=0.5,solid}"
	}
	return options
}
