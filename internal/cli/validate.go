package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bwplan/internal/plan"
	"github.com/danieljhkim/bwplan/internal/wire"
)

// validationResult is the outcome of validating one plan file.
type validationResult struct {
	Path      string      `json:"path"`
	Valid     bool        `json:"valid"`
	Family    wire.Family `json:"family,omitempty"`
	PlanID    string      `json:"plan_id,omitempty"`
	Canonical bool        `json:"canonical"`
	FieldsOK  bool        `json:"fields_ok"`
	FieldErr  string      `json:"field_error,omitempty"`
	WindowOK  *bool       `json:"window_ok,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// validatePlan decodes data and checks that it re-encodes to the same text.
func validatePlan(path string, data []byte) validationResult {
	res := validationResult{Path: path}

	doc, err := wire.Decode(data)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Valid = true
	res.Family = doc.Family
	res.PlanID = doc.PlanID()

	text, err := wire.Encode(doc)
	if err != nil {
		res.Valid = false
		res.Error = err.Error()
		return res
	}
	res.Canonical = bytes.Equal(bytes.TrimSpace(data), text)

	if err := doc.Validate(); err != nil {
		res.FieldErr = err.Error()
	} else {
		res.FieldsOK = true
	}

	if doc.Family == wire.FamilySwap {
		ok := doc.Swap.Window.Validate() == nil
		res.WindowOK = &ok
	}
	return res
}

func newValidateCmd(g *globalOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <plan-file>...",
		Short: "Check that plan files decode",
		Long: `Decode each plan file and report its family and id.

A file is canonical when re-encoding the decoded plan reproduces its text
exactly. With --strict, non-canonical files, plans carrying negative lengths,
offsets or indices, and swap windows whose deadline precedes the start also
fail.`,
		Example: `  bwplan validate cache_plan.json swap_plan.json
  bwplan validate --strict --json plan.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			results := make([]validationResult, 0, len(args))
			failed := 0
			for _, path := range args {
				var res validationResult
				data, err := a.fs.ReadFile(path)
				if err != nil {
					res = validationResult{Path: path, Error: err.Error()}
				} else {
					res = validatePlan(path, data)
				}
				if !passes(res, strict) {
					failed++
				}
				a.logger.Debug("validated plan", "path", path, "valid", res.Valid, "canonical", res.Canonical)
				results = append(results, res)
			}

			if g.json {
				if err := a.out.JSON(results); err != nil {
					return err
				}
			} else {
				for _, res := range results {
					printValidation(a.out, res)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%s failed validation", formatCount(failed, "plan", "plans"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Also fail non-canonical text, negative fields and inverted swap windows")
	return cmd
}

func passes(res validationResult, strict bool) bool {
	if !res.Valid {
		return false
	}
	if !strict {
		return true
	}
	return res.Canonical && res.FieldsOK && (res.WindowOK == nil || *res.WindowOK)
}

func printValidation(p *printer, res validationResult) {
	if !res.Valid {
		p.Failure(fmt.Sprintf("%s: %s", res.Path, res.Error))
		return
	}
	p.Success(fmt.Sprintf("%s: %s plan %s", res.Path, res.Family, res.PlanID))
	if !res.Canonical {
		p.Warning(fmt.Sprintf("%s: not in canonical form", res.Path))
	}
	if !res.FieldsOK {
		p.Warning(fmt.Sprintf("%s: %s", res.Path, res.FieldErr))
	}
	if res.WindowOK != nil && !*res.WindowOK {
		p.Warning(fmt.Sprintf("%s: %v", res.Path, plan.ErrInvalidWindow))
	}
}
