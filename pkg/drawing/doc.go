// Package drawing holds the value types shared by every stage of the coloring
// page wizard: generated image options, print settings, and the canned demo
// sets used when no provider is enabled.
package drawing
