package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const (
	// annotationAccount marks commands that act for the connected wallet
	// account unless --account or an argument names one.
	annotationAccount = "shadowlend/account"

	subcommandsHeading = "\n\nCommands:\n"
	accountFootnote    = "\n  * acts for the connected wallet account by default\n"
)

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// actsForAccount annotates cmds as signing or querying for the connected account.
func actsForAccount(cmds ...*cobra.Command) {
	for _, c := range cmds {
		if c.Annotations == nil {
			c.Annotations = map[string]string{}
		}
		c.Annotations[annotationAccount] = "true"
	}
}

// listSubcommands appends the full invocation of each visible subcommand to a
// group command's Long text. The root keeps cobra's grouped listing, and a
// command already listed is left alone.
func listSubcommands(cmd *cobra.Command) {
	if !cmd.HasParent() || !cmd.HasAvailableSubCommands() || strings.Contains(cmd.Long, subcommandsHeading) {
		return
	}

	var (
		rows   [][2]string
		width  int
		marked bool
	)
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		usage := sub.CommandPath()
		if args := strings.TrimPrefix(sub.Use, sub.Name()); args != "" {
			usage += args
		}
		short := sub.Short
		if sub.Annotations[annotationAccount] != "" {
			short += " *"
			marked = true
		}
		width = max(width, len(usage))
		rows = append(rows, [2]string{usage, short})
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString(subcommandsHeading)
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("  %-*s  %s\n", width, r[0], r[1]))
	}
	if marked {
		sb.WriteString(accountFootnote)
	}
	cmd.Long = sb.String()
}
