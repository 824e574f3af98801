// Package pgquery is the thin cobra CLI front end for the compiler
// pipeline (§10.5). It wires config.Options and pgquery.Compile together
// for local, interactive use; it does not perform emission or manage the
// database lifecycle — both remain external collaborators (spec §1).
package pgquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	rootpkg "github.com/quillhq/pgquery"
	"github.com/quillhq/pgquery/config"
)

const (
	queriesFlag    = "queries"
	searchPathFlag = "search-path"
	dsnFlag        = "dsn"
)

var compileFlags = map[string]cobraflags.Flag{
	queriesFlag: &cobraflags.StringFlag{
		Name:  queriesFlag,
		Value: "queries/*.sql",
		Usage: "Glob of annotated query files to compile",
	},
	searchPathFlag: &cobraflags.StringFlag{
		Name:  searchPathFlag,
		Value: "public",
		Usage: "Comma-separated schema search path",
	},
	dsnFlag: &cobraflags.StringFlag{
		Name:  dsnFlag,
		Value: "",
		Usage: "PostgreSQL connection string for the prepared schema (required)",
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile annotated SQL query files into a validated IR",
	Long: `Compile reads annotated query files matching --queries, prepares each
statement against the live schema at --dsn, resolves every referenced type,
and reports the resulting query count.

This command does not emit Go source; it exercises the compiler pipeline
up to IR assembly so the result can be inspected or piped to a separate
emitter.`,
	RunE: runCompile,
}

// NewCompileCommand returns the "compile" subcommand, with its flags
// registered.
func NewCompileCommand() *cobra.Command {
	cobraflags.RegisterMap(compileCmd, compileFlags)
	return compileCmd
}

func runCompile(cmd *cobra.Command, _ []string) error {
	dsn := compileFlags[dsnFlag].GetString()
	if dsn == "" {
		return fmt.Errorf("--dsn is required")
	}
	queries := compileFlags[queriesFlag].GetString()
	searchPath := strings.Split(compileFlags[searchPathFlag].GetString(), ",")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", dsn, err)
	}
	defer pool.Close()

	opts := config.DefaultOptions().WithQueryGlobs(queries).WithSearchPath(searchPath...)

	project, err := rootpkg.Compile(ctx, pool, opts)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	total := 0
	for _, mod := range project.Modules {
		total += len(mod.Queries)
	}
	fmt.Printf("compiled %d module(s), %d queries, %d type(s) interned\n",
		len(project.Modules), total, project.Types.Len())
	return nil
}
