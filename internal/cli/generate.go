package cli

import (
	"fmt"
	"io"

	"arithmetic-practice-service/internal/config"
	"arithmetic-practice-service/internal/domain"
	"arithmetic-practice-service/internal/fileio"
	"arithmetic-practice-service/internal/generator"
	"github.com/spf13/cobra"
)

// NewGenerateCmd prints a worksheet of generated problems to stdout.
func NewGenerateCmd(configPath *string) *cobra.Command {
	var (
		grade  int
		count  int
		format string
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a worksheet of problems for a grade",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			rules, err := cfg.RuleTable()
			if err != nil {
				return err
			}
			var opts []generator.Option
			if cmd.Flags().Changed("seed") {
				opts = append(opts, generator.WithSeed(seed))
			}
			return writeWorksheet(cmd.OutOrStdout(), generator.New(rules, opts...), grade, count, format)
		},
	}
	cmd.Flags().IntVar(&grade, "grade", 1, "grade level")
	cmd.Flags().IntVar(&count, "count", 20, "number of problems")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, csv or docx")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for reproducible worksheets")
	return cmd
}

func writeWorksheet(w io.Writer, gen *generator.Generator, grade, count int, format string) error {
	if count < 1 {
		return fmt.Errorf("%w: count must be at least 1", domain.ErrMalformedInput)
	}
	problems := make([]domain.Problem, 0, count)
	for i := 0; i < count; i++ {
		p, err := gen.Generate(grade, domain.DefaultDifficulty)
		if err != nil {
			return err
		}
		problems = append(problems, p)
	}

	if format == "text" {
		for i, p := range problems {
			if _, err := fmt.Fprintf(w, "%d) %s\n", i+1, p.Text); err != nil {
				return err
			}
		}
		return nil
	}
	return fileio.Export(w, fileio.Format(format), problems)
}
