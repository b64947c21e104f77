package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// applyEnvFallback fills flags not set on the command line from
// ROLLUP_<FLAG> environment variables (dashes become underscores), so
// any flag can come from the environment. Precedence: flag > env >
// default. Runs before required-flag validation, so an env value
// satisfies a required flag.
func applyEnvFallback(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || f.Name == "help" {
			return
		}
		key := "ROLLUP_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := os.LookupEnv(key); ok {
			err = cmd.Flags().Set(f.Name, v)
		}
	})
	return err
}
