package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/source"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [factory]",
		Short: "List the source factories, or describe one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listFactories(cmd.OutOrStdout())
			}
			return describeFactory(cmd.OutOrStdout(), args[0])
		},
	}
}

func listFactories(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FACTORY\tRANK\tSCHEMES\tMODE\tDESCRIPTION")
	for _, f := range element.Factories() {
		mode := "pull"
		if element.TypeIsA(f.Type, element.TypePushSrc) {
			mode = "push"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.Name, f.Rank, strings.Join(f.Protocols(), ","), mode, f.Class().Metadata().LongName)
	}
	return tw.Flush()
}

func describeFactory(w io.Writer, name string) error {
	f, ok := element.FindFactory(name)
	if !ok {
		return errors.Errorf("no such factory: %s", name)
	}
	class := f.Class()
	md := class.Metadata()

	bold.Fprintf(w, "Factory details:\n")
	fmt.Fprintf(w, "  %-16s", "Name")
	cyan.Fprintf(w, "%s\n", f.Name)
	fmt.Fprintf(w, "  %-16s%s\n", "Long name", md.LongName)
	fmt.Fprintf(w, "  %-16s%s\n", "Class", md.Classification)
	fmt.Fprintf(w, "  %-16s%s\n", "Description", md.Description)
	fmt.Fprintf(w, "  %-16s%s\n", "Author", md.Author)
	fmt.Fprintf(w, "  %-16s", "Rank")
	yellow.Fprintf(w, "%s (%d)\n", f.Rank, int(f.Rank))
	fmt.Fprintf(w, "  %-16s%s\n", "Plugin", f.Plugin)
	fmt.Fprintf(w, "  %-16s%s\n", "Type", element.TypeName(f.Type))
	fmt.Fprintf(w, "  %-16s%s\n", "Parent", element.TypeName(element.TypeParent(f.Type)))

	if d, ok := source.Lookup(f.Type); ok {
		fmt.Fprintf(w, "  %-16s%v\n", "Push only", d.PushOnly())
	}

	if element.TypeImplements(f.Type, element.InterfaceURIHandler) {
		fmt.Fprintln(w)
		bold.Fprintf(w, "URI handling:\n")
		fmt.Fprintf(w, "  %-16s%s\n", "Type", f.URIType())
		fmt.Fprintf(w, "  %-16s%s\n", "Protocols", strings.Join(f.Protocols(), ", "))
	}

	fmt.Fprintln(w)
	bold.Fprintf(w, "Pad templates:\n")
	for _, templ := range class.PadTemplates() {
		fmt.Fprintf(w, "  %s: %s, %s, caps %s\n", templ.Name, templ.Direction, templ.Presence, templ.Caps)
	}

	fmt.Fprintln(w)
	bold.Fprintf(w, "Properties:\n")
	for _, pspec := range class.Properties() {
		fmt.Fprintf(w, "  %-16s%s. %s, %s\n", pspec.Name, pspec.Blurb, pspec.Type, describeFlags(pspec.Flags))
	}
	return nil
}

func describeFlags(flags element.ParamFlags) string {
	var parts []string
	if flags&element.ParamReadable != 0 {
		parts = append(parts, "readable")
	}
	if flags&element.ParamWritable != 0 {
		parts = append(parts, "writable")
	}
	if flags&element.ParamMutableReady != 0 {
		parts = append(parts, "changeable only in NULL or READY state")
	}
	return strings.Join(parts, ", ")
}
