package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/databeam/databeam/pkg/config"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a bring-up CUE package without starting the hub",
		Long: `Validate parses a bring-up CUE package — a single file or a directory
of .cue files — checking:
  - CUE syntax validity
  - Schema conformance (namespace/iopoint/observation/route shapes)
  - Struct-tag validation of the decoded declarations

It does not resolve Starlark expressions or apply the result to a tree.`,
		Example: `  # Validate the bring-up package in the current directory
  databeamd validate .

  # Validate a single file
  databeamd validate ./bringup.cue`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			if configPath != "" {
				path = configPath
			}

			sources, err := sourcesFor(path)
			if err != nil {
				return err
			}

			parser := config.NewCUEParser()
			spec, err := parser.Parse(context.Background(), sources)
			if err != nil {
				return fmt.Errorf("parse failed: %w", err)
			}

			if len(spec.Errors) > 0 {
				for _, ve := range spec.Errors {
					log.Error().Str("path", ve.Path).Str("file", ve.File).Msg(ve.Message)
				}
				return fmt.Errorf("validation failed with %d error(s)", len(spec.Errors))
			}

			fmt.Printf("valid: %d namespace(s), %d input(s), %d output(s), %d observation(s), %d route(s)\n",
				len(spec.Namespaces), len(spec.Inputs), len(spec.Outputs), len(spec.Observations), len(spec.Routes))
			return nil
		},
	}

	return cmd
}

// sourcesFor resolves path to a list of .cue source files: path itself if
// it is a file, or every .cue file under it, recursively, if it is a
// directory.
func sourcesFor(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	parser := config.NewCUEParser()
	return parser.LoadFromDirectory(path)
}
