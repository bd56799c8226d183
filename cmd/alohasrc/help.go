package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

type segment struct {
	c *color.Color
	s string
}

//          _         _
//    __ _ | |  ___  | |__    __ _  ___  _ __   ___
//   / _` || | / _ \ | '_ \  / _` |/ __|| '__| / __|
//  | (_| || || (_) || | | || (_| |\__ \| |   | (__
//   \__,_||_| \___/ |_| |_| \__,_||___/|_|    \___|
var banner = [][]segment{
	{{red, "        "}, {yellow, " _ "}, {cyan, "       "}, {yellow, " _     "}, {red, "       "}},
	{{red, "   __ _ "}, {yellow, "| |"}, {cyan, "  ___  "}, {yellow, "| |__  "}, {red, "  __ _ "},
		{cyan, " ___ "}, {yellow, " _ __ "}, {red, "  ___ "}},
	{{red, "  / _` |"}, {yellow, "| |"}, {cyan, " / _ \\ "}, {yellow, "| '_ \\ "}, {red, " / _` |"},
		{cyan, "/ __|"}, {yellow, "| '__|"}, {red, " / __|"}},
	{{red, " | (_| |"}, {yellow, "| |"}, {cyan, "| (_) |"}, {yellow, "| | | |"}, {red, "| (_| |"},
		{cyan, "\\__ \\"}, {yellow, "| |   "}, {red, "| (__ "}},
	{{red, "  \\__,_|"}, {yellow, "|_|"}, {cyan, " \\___/ "}, {yellow, "|_| |_|"}, {red, " \\__,_|"},
		{cyan, "|___/"}, {yellow, "|_|   "}, {red, " \\___|"}},
}

func printBanner(w io.Writer) {
	for _, line := range banner {
		for _, seg := range line {
			seg.c.Fprint(w, seg.s)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// helpFunc prints the banner above the root command's help.
func helpFunc(defaultHelp func(*cobra.Command, []string)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if !cmd.HasParent() {
			printBanner(cmd.OutOrStdout())
		}
		defaultHelp(cmd, args)
	}
}
