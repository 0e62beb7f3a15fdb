// Package diagram renders an assembly's constraint system as a Graphviz
// node-link diagram.
//
// Components are boxes, nested components hang off their parent with
// dashed ownership edges, and each two-element constraint is an undirected
// edge labeled with its kind. Constraint edges are colored by the result
// of the last post-solve check: green when satisfied, red when violated
// and grey when unchecked. Grounded components get a double outline.
//
//	dot := diagram.ToDOT(asm, diagram.Options{})
//	svg, err := diagram.RenderSVG(ctx, dot)
//
// RenderSVG uses [github.com/goccy/go-graphviz], which runs Graphviz
// in-process so no system installation is required.
package diagram
