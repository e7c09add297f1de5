package signctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	gs "github.com/dmitrijs2005/contractsign/internal/server/grpc"
)

// stageList collects repeated -stage "Name=amount[=description]" flags.
type stageList []map[string]any

func (s *stageList) String() string { return fmt.Sprint(len(*s)) }

func (s *stageList) Set(v string) error {
	parts := strings.SplitN(v, "=", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return errors.New(`stage must look like "Name=1000.00"`)
	}
	st := map[string]any{
		"stage":  strings.TrimSpace(parts[0]),
		"amount": strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 {
		st["description"] = strings.TrimSpace(parts[2])
	}
	*s = append(*s, st)
	return nil
}

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func requirePositive(name string, v int64) error {
	if v <= 0 {
		return fmt.Errorf("%w: -%s is required", ErrUsage, name)
	}
	return nil
}

func (a *App) cmdToken(args []string) error {
	fs := a.newFlagSet("token")
	validity := fs.Duration("validity", defaultTokenLife, "token lifetime")
	if err := parse(fs, args); err != nil {
		return err
	}

	token, err := a.mintToken(*validity)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, token)
	return err
}

func (a *App) cmdIssueLink(ctx context.Context, args []string) error {
	fs := a.newFlagSet("issue-link")
	id := fs.Int64("contract", 0, "contract id")
	mode := fs.String("mode", "stateless", "stateless or single_use")
	send := fs.Bool("send", false, "email the link to the client")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requirePositive("contract", *id); err != nil {
		return err
	}

	return a.call(ctx, gs.MethodIssueLink, map[string]any{
		"contract_id": *id,
		"mode":        *mode,
		"send":        *send,
	})
}

func (a *App) cmdPublishTerms(ctx context.Context, args []string) error {
	fs := a.newFlagSet("publish-terms")
	file := fs.String("file", "", "terms text file (default stdin)")
	activate := fs.Bool("activate", false, "make the new version active")
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		content []byte
		err     error
	)
	if *file == "" || *file == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(*file)
	}
	if err != nil {
		return fmt.Errorf("read terms: %w", err)
	}

	return a.call(ctx, gs.MethodPublishTerms, map[string]any{
		"content":  string(content),
		"activate": *activate,
	})
}

func (a *App) cmdActivateTerms(ctx context.Context, args []string) error {
	fs := a.newFlagSet("activate-terms")
	id := fs.Int64("id", 0, "terms version id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requirePositive("id", *id); err != nil {
		return err
	}
	return a.call(ctx, gs.MethodActivateTerms, map[string]any{"id": *id})
}

func (a *App) cmdSetSchedule(ctx context.Context, args []string) error {
	fs := a.newFlagSet("set-schedule")
	id := fs.Int64("contract", 0, "contract id")
	var stages stageList
	fs.Var(&stages, "stage", `stage as "Name=amount[=description]", repeatable; none clears the override`)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requirePositive("contract", *id); err != nil {
		return err
	}

	list := make([]any, 0, len(stages))
	for _, st := range stages {
		list = append(list, st)
	}
	return a.call(ctx, gs.MethodSetSchedule, map[string]any{
		"contract_id": *id,
		"stages":      list,
	})
}

func (a *App) cmdComplete(ctx context.Context, args []string) error {
	fs := a.newFlagSet("complete")
	id := fs.Int64("contract", 0, "contract id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requirePositive("contract", *id); err != nil {
		return err
	}
	return a.call(ctx, gs.MethodCompleteContract, map[string]any{"contract_id": *id})
}

