package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// quoteToken wraps tok in double quotes if it contains whitespace, so it
// survives the shell's tokenizer as a single positional argument instead of
// splitting into several. A token that already contains a double quote is
// left alone - this client has no escaping story for that case.
func quoteToken(tok string) string {
	if strings.ContainsAny(tok, " \t") && !strings.Contains(tok, `"`) {
		return `"` + tok + `"`
	}
	return tok
}

func quoteTokens(toks []string) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = quoteToken(tok)
	}
	return out
}

var (
	getCmd = &cobra.Command{
		Use:   "get [key...]",
		Short: "Fetch one or more values by key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sess.send("get " + strings.Join(quoteTokens(args), " "))
			if err != nil {
				return err
			}
			fmt.Println(resp)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a single key to a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sess.send(fmt.Sprintf("set %s %s", quoteToken(args[0]), quoteToken(args[1])))
			if err != nil {
				return err
			}
			fmt.Println(resp)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:     "del [key...]",
		Aliases: []string{"delete", "remove"},
		Short:   "Delete one or more keys",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sess.send("delete " + strings.Join(quoteTokens(args), " "))
			if err != nil {
				return err
			}
			fmt.Println(resp)
			return nil
		},
	}
	execCmd = &cobra.Command{
		Use:   "exec [command line]",
		Short: "Send a raw command line and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sess.send(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(resp)
			return nil
		},
	}
)
