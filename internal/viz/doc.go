// Package viz renders an adaptive run live in the terminal with Bubble
// Tea: progress, the active solver family, indicator and monitor charts,
// the most recent switches and a braille phase portrait.
//
// A [Feed] is a controller observer that forwards samples to the program;
// [Run] wires the two together and cancels the run when the view quits.
//
// # Key Bindings
//
//	q   - Quit and cancel the run
//	t   - Cycle color themes
//	l   - Toggle log scale on the charts
//	tab - Cycle the plotted component
//	?   - Show help
package viz
