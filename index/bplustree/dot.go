package bplustree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// maxDOTKeys caps the keys drawn per leaf so large trees stay legible.
const maxDOTKeys = 8

// Print writes <dir>/<name>.dot and, when the Graphviz dot binary is on the
// PATH, renders <dir>/<name>.png. It returns the path of the last file
// written.
func (t *Tree[V]) Print(dir, name string) (string, error) {
	dotPath := filepath.Join(dir, name+".dot")
	pngPath := filepath.Join(dir, name+".png")

	f, err := os.Create(dotPath)
	if err != nil {
		return "", errors.Wrap(err, "bplustree: create dot file")
	}
	if err := t.ExportDOT(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "bplustree: close dot file")
	}

	bin, err := exec.LookPath("dot")
	if err != nil {
		return dotPath, nil
	}
	if err := exec.Command(bin, "-Tpng", dotPath, "-o", pngPath).Run(); err != nil {
		return dotPath, errors.Wrap(err, "bplustree: graphviz")
	}
	return pngPath, nil
}

// ExportDOT writes the tree as a Graphviz digraph: internal nodes with their
// separators, leaves with their keys, dashed edges along the leaf chain.
func (t *Tree[V]) ExportDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph BPlusTree {")
	fmt.Fprintln(bw, "  graph [ranksep=0.8, nodesep=0.5, bgcolor=\"#ffffff\", rankdir=TB];")
	fmt.Fprintln(bw, "  node [shape=none, fontname=\"Helvetica\", fontsize=10];")
	fmt.Fprintln(bw, "  edge [arrowsize=0.8, color=\"#444444\"];")

	names := make(map[node[V]]string)
	var leaves []*leafNode[V]

	var export func(n node[V]) string
	export = func(n node[V]) string {
		name := fmt.Sprintf("node%d", len(names))
		names[n] = name

		switch x := n.(type) {
		case *leafNode[V]:
			fmt.Fprintf(bw, "  %s [label=<<TABLE BORDER=\"0\" CELLBORDER=\"1\" CELLSPACING=\"0\" CELLPADDING=\"4\">"+
				"<TR><TD BGCOLOR=\"#D5E8D4\"><B>LEAF</B><BR/><FONT POINT-SIZE=\"8\">%d/%d</FONT></TD></TR>"+
				"<TR><TD BGCOLOR=\"#F5F5F5\" ALIGN=\"LEFT\">%s</TD></TR></TABLE>>];\n",
				name, len(x.keys), t.order-1, leafLabel(x.keys))
			leaves = append(leaves, x)
		case *internalNode[V]:
			var cells strings.Builder
			for i, k := range x.keys {
				fmt.Fprintf(&cells, "<TD PORT=\"f%d\" BGCOLOR=\"#E1F5FE\"> </TD><TD><B>%s</B></TD>", i, formatKey(k))
			}
			fmt.Fprintf(&cells, "<TD PORT=\"f%d\" BGCOLOR=\"#E1F5FE\"> </TD>", len(x.keys))
			fmt.Fprintf(bw, "  %s [label=<<TABLE BORDER=\"0\" CELLBORDER=\"1\" CELLSPACING=\"0\" CELLPADDING=\"4\">"+
				"<TR><TD COLSPAN=\"%d\" BGCOLOR=\"#DAE8FC\"><B>INTERNAL</B></TD></TR><TR>%s</TR></TABLE>>];\n",
				name, 2*len(x.keys)+1, cells.String())
			for i, c := range x.children {
				fmt.Fprintf(bw, "  %s:f%d -> %s;\n", name, i, export(c))
			}
		default:
			unknownNode(n)
		}
		return name
	}
	export(t.root)

	if len(leaves) > 1 {
		fmt.Fprintln(bw, "  { rank=same;")
		for _, l := range leaves {
			fmt.Fprintf(bw, "    %s;\n", names[l])
		}
		fmt.Fprintln(bw, "  }")
		for _, l := range leaves {
			if target, ok := names[l.next]; ok && l.next != nil {
				fmt.Fprintf(bw, "  %s -> %s [style=dashed, color=\"#03A9F4\", constraint=false];\n", names[l], target)
			}
		}
	}
	fmt.Fprintln(bw, "}")
	return errors.Wrap(bw.Flush(), "bplustree: write dot")
}

func leafLabel(keys []float64) string {
	if len(keys) == 0 {
		return "(empty)"
	}
	parts := make([]string, 0, min(len(keys), maxDOTKeys)+1)
	for i, k := range keys {
		if i == maxDOTKeys {
			parts = append(parts, fmt.Sprintf("… +%d", len(keys)-maxDOTKeys))
			break
		}
		parts = append(parts, formatKey(k))
	}
	return strings.Join(parts, "<BR/>")
}

func formatKey(k float64) string { return strconv.FormatFloat(k, 'g', -1, 64) }
