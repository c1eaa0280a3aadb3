package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/store"
)

func newStoreRmCmd(g *globalOptions, opts *storeOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm <plan-id>",
		Short: "Delete an archived plan",
		Long: `Delete an archived plan permanently.

You'll be prompted to confirm deletion unless --force is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			planID := args[0]

			if !force && !g.json {
				if !promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete plan %s?", planID)) {
					return fmt.Errorf("deletion cancelled by user")
				}
			}

			err = withStore(a, opts, func(s store.Store) error {
				return s.Delete(cmd.Context(), planID)
			})

			if g.json {
				out := map[string]any{"success": err == nil, "plan_id": planID}
				if err != nil {
					out["error"] = err.Error()
				}
				if jerr := a.out.JSON(out); jerr != nil {
					return jerr
				}
				return err
			}
			if err != nil {
				return err
			}
			a.out.Success(fmt.Sprintf("Deleted plan %s", planID))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without confirmation")
	return cmd
}

// promptConfirm asks a yes/no question and reports whether the answer was yes.
func promptConfirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s (y/N): ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
