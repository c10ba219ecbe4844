// Package palette exposes a fixed list of categorical hex colors used to tell query types
// apart in charts.
package palette

var (
	Category20 = []string{
		"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c", "#98df8a", "#d62728", "#ff9896", "#9467bd", "#c5b0d5",
		"#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f", "#c7c7c7", "#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
	}
	Category20b = []string{
		"#393b79", "#5254a3", "#6b6ecf", "#9c9ede", "#637939", "#8ca252", "#b5cf6b", "#cedb9c", "#8c6d31", "#bd9e39",
		"#e7ba52", "#e7cb94", "#843c39", "#ad494a", "#d6616b", "#e7969c", "#7b4173", "#a55194", "#ce6dbd", "#de9ed6",
	}
	Category20c = []string{
		"#3182bd", "#6baed6", "#9ecae1", "#c6dbef", "#e6550d", "#fd8d3c", "#fdae6b", "#fdd0a2", "#31a354", "#74c476",
		"#a1d99b", "#c7e9c0", "#756bb1", "#9e9ac8", "#bcbddc", "#dadaeb", "#636363", "#969696", "#bdbdbd", "#d9d9d9",
	}
	PiYG11 = []string{
		"#8e0152", "#c51b7d", "#de77ae", "#f1b6da", "#fde0ef", "#f7f7f7", "#e6f5d0", "#b8e186", "#7fbc41", "#4d9221", "#276419",
	}
	Pastel1 = []string{
		"#fbb4ae", "#b3cde3", "#ccebc5", "#decbe4", "#fed9a6", "#ffffcc", "#e5d8bd", "#fddaec", "#f2f2f2",
	}
)

// All is every palette concatenated, in the order Colors draws from.
func All() []string {
	all := make([]string, 0, len(Category20)+len(Category20b)+len(Category20c)+len(PiYG11)+len(Pastel1))
	for _, p := range [][]string{Category20, Category20b, Category20c, PiYG11, Pastel1} {
		all = append(all, p...)
	}
	return all
}

// Colors returns the first n colors. Asking for more than are available returns them all.
func Colors(n int) []string {
	all := All()
	if n < 0 {
		n = 0
	}
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}
