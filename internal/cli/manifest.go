package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/convert"
	"github.com/danieljhkim/bwplan/internal/hash"
	"github.com/danieljhkim/bwplan/internal/integrity"
	"github.com/danieljhkim/bwplan/internal/plan"
	"github.com/danieljhkim/bwplan/internal/wire"
)

func newManifestCmd(g *globalOptions) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Translate and verify weight manifests",
		Long:  `Translate raw checkpoint manifests and verify swap plan manifests against files on disk.`,
	}
	manifestCmd.AddCommand(newManifestTranslateCmd(), newManifestVerifyCmd(g))
	return manifestCmd
}

func newManifestTranslateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <raw-manifest>",
		Short: "Flatten a raw manifest into plan form",
		Long: `Flatten the tensors and shards of a raw checkpoint manifest into the file
chunk list carried by swap plans. "file://" prefixes are stripped.`,
		Example: `  bwplan manifest translate next.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			raw, err := readManifest(a, args[0])
			if err != nil {
				return err
			}
			m, err := convert.TranslateManifest(raw)
			if err != nil {
				return fmt.Errorf("failed to translate manifest: %w", err)
			}
			text, err := wire.EncodeManifest(m)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(text))
			return err
		},
	}
}

func newManifestVerifyCmd(g *globalOptions) *cobra.Command {
	var (
		root string
		side string
	)

	cmd := &cobra.Command{
		Use:   "verify <swap-plan>",
		Short: "Hash manifest chunks and compare them with their recorded SHA-256",
		Long: `Hash every file chunk of one manifest of a swap plan and compare it with the
recorded SHA-256. Relative paths resolve against --root. The command fails
when any chunk is missing, short or mismatched.`,
		Example: `  bwplan manifest verify swap_plan.json --root /ckpt --side to`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			p, err := wire.LoadSwapPlan(a.fs, args[0])
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", args[0], err)
			}

			var m plan.WeightManifest
			switch side {
			case "from":
				m = p.From
			case "to":
				m = p.To
			default:
				return fmt.Errorf("--side must be \"from\" or \"to\", got %q", side)
			}

			v := integrity.NewVerifier(root, hash.NewSHA256Hasher(), a.logger)
			report, err := v.Verify(cmd.Context(), m)
			if err != nil {
				return err
			}

			if g.json {
				if err := a.out.JSON(report); err != nil {
					return err
				}
			} else {
				printReport(a.out, report)
			}

			if !report.OK() {
				return fmt.Errorf("%s failed verification", formatCount(len(report.Mismatches), "chunk", "chunks"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Directory that relative chunk paths resolve against")
	cmd.Flags().StringVar(&side, "side", "to", "Manifest to verify: from or to")
	return cmd
}

func printReport(p *printer, r integrity.Report) {
	p.Section(fmt.Sprintf("Manifest %s@%s", r.ModelID, r.Version))
	p.LabelValue("Checked", formatCount(r.Checked, "chunk", "chunks"))
	p.LabelValue("Verified", formatBytes(r.Bytes))

	if r.OK() {
		p.Success("All chunks match")
		return
	}
	rows := make([][]string, 0, len(r.Mismatches))
	for _, m := range r.Mismatches {
		rows = append(rows, []string{m.Path, strconv.FormatInt(m.Offset, 10), strconv.FormatInt(m.Length, 10), m.Reason})
	}
	p.Table([]string{"Path", "Offset", "Length", "Reason"}, rows)
}
