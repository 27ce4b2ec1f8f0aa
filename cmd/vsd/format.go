package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/vsd"
)

// signalSource is the read side shared by model.Tree and vsd.Context.
type signalSource interface {
	Roots() []model.Signal
	Info(model.Signal) (model.Info, error)
	Get(model.Signal) (model.Value, error)
	Walk(model.Signal, func(model.Signal) error) error
}

var (
	_ signalSource = (*model.Tree)(nil)
	_ signalSource = (*vsd.Context)(nil)
)

func formatUpdate(u vsd.Update) string {
	return fmt.Sprintf("%s %s = %s (from %s)", time.Now().Format("15:04:05.000"), u.Path, u.Value, shortPeer(u.Peer))
}

func shortPeer(peer string) string {
	if len(peer) > 8 {
		return peer[:8]
	}
	return peer
}

// printTree writes the subtree at root, or every root when root is zero,
// one node per line indented by depth.
func printTree(w io.Writer, src signalSource, root model.Signal, values bool) error {
	roots := src.Roots()
	if !root.IsZero() {
		roots = []model.Signal{root}
	}
	for _, r := range roots {
		base, err := src.Info(r)
		if err != nil {
			return err
		}
		baseDepth := strings.Count(base.Path, ".")
		err = src.Walk(r, func(s model.Signal) error {
			info, err := src.Info(s)
			if err != nil {
				return err
			}
			indent := strings.Repeat("  ", strings.Count(info.Path, ".")-baseDepth)
			fmt.Fprintf(w, "%s%s%s\n", indent, info.Name, describe(src, s, info, values))
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func describe(src signalSource, s model.Signal, info model.Info, values bool) string {
	if info.Element.IsBranch() || info.Implicit {
		return "/"
	}
	var b strings.Builder
	fmt.Fprintf(&b, " [%s %s", info.Element, info.Type)
	if info.HasID {
		fmt.Fprintf(&b, " #%d", info.ID)
	}
	b.WriteString("]")
	if info.Unit != "" {
		fmt.Fprintf(&b, " %s", info.Unit)
	}
	if values {
		if v, err := src.Get(s); err == nil && v.IsDefined() {
			fmt.Fprintf(&b, " = %s", v)
		}
	}
	return b.String()
}

// formatInfo writes every attribute of a node.
func formatInfo(w io.Writer, info model.Info) {
	fmt.Fprintf(w, "Path:        %s\n", info.Path)
	if info.HasID {
		fmt.Fprintf(w, "ID:          %d\n", info.ID)
	}
	fmt.Fprintf(w, "Element:     %s\n", info.Element)
	fmt.Fprintf(w, "Type:        %s\n", info.Type)
	if info.Unit != "" {
		fmt.Fprintf(w, "Unit:        %s\n", info.Unit)
	}
	if info.Min.IsDefined() || info.Max.IsDefined() {
		fmt.Fprintf(w, "Range:       %s .. %s\n", info.Min, info.Max)
	}
	if len(info.Enum) > 0 {
		names := make([]string, len(info.Enum))
		for i, v := range info.Enum {
			names[i] = v.String()
		}
		fmt.Fprintf(w, "Allowed:     %s\n", strings.Join(names, ", "))
	}
	if info.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", info.Description)
	}
	if info.Implicit {
		fmt.Fprintln(w, "Implicit:    yes")
	}
}

// parseAssignment splits "path=value".
func parseAssignment(arg string) (path, value string, err error) {
	path, value, ok := strings.Cut(arg, "=")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return "", "", fmt.Errorf("expected path=value, got %q", arg)
	}
	return path, value, nil
}
