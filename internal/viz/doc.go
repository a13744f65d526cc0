// Package viz renders orbits in the terminal.
//
//   - [Canvas]: braille pixel canvas with a [Viewport] for data coordinates
//   - [Player]: Bubble Tea model that iterates a map live
//   - lipgloss styles and color themes
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single step while paused
//	R     - Reset to the initial condition
//	+/-   - Iterates per frame
//	Tab   - Select parameter, Up/Down to scale it
//	A     - Cycle plotted coordinates
//	T     - Cycle color themes
//	?     - Show help
package viz
