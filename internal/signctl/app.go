package signctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/server/accesstoken"
	"github.com/dmitrijs2005/contractsign/internal/server/auth"

	gs "github.com/dmitrijs2005/contractsign/internal/server/grpc"
)

const (
	tokenEnv         = "SIGNCTL_TOKEN"
	defaultAddr      = "localhost:50051"
	mintedValidity   = 10 * time.Minute
	defaultTokenLife = 12 * time.Hour
	callTimeout      = 30 * time.Second
)

// ErrUsage is returned for unknown commands and bad flags.
var ErrUsage = errors.New("usage error")

// Invoker calls one operator method.
type Invoker interface {
	Call(ctx context.Context, method string, in map[string]any) (map[string]any, error)
}

type App struct {
	out    io.Writer
	getenv func(string) string
	secret func(io.Writer) ([]byte, error)
	dial   func(addr, token string) (Invoker, io.Closer, error)

	addr      string
	token     string
	operator  string
	rawSecret bool
}

func NewApp(out io.Writer) *App {
	return &App{
		out:    out,
		getenv: os.Getenv,
		secret: getSecret,
		dial:   dialOperator,
	}
}

func dialOperator(addr, token string) (Invoker, io.Closer, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return gs.NewClient(conn, token), conn, nil
}

// Run parses global flags and executes one command.
func (a *App) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signctl", flag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.StringVar(&a.addr, "addr", defaultAddr, "operator gRPC address")
	fs.StringVar(&a.token, "token", "", "operator token (default $"+tokenEnv+")")
	fs.StringVar(&a.operator, "operator", a.getenv("USER"), "operator name for minted tokens")
	fs.BoolVar(&a.rawSecret, "raw-secret", false, "use the entered secret as the operator key instead of deriving it")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: command required", ErrUsage)
	}
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "token":
		return a.cmdToken(cmdArgs)
	case "issue-link":
		return a.cmdIssueLink(ctx, cmdArgs)
	case "publish-terms":
		return a.cmdPublishTerms(ctx, cmdArgs)
	case "activate-terms":
		return a.cmdActivateTerms(ctx, cmdArgs)
	case "set-schedule":
		return a.cmdSetSchedule(ctx, cmdArgs)
	case "complete":
		return a.cmdComplete(ctx, cmdArgs)
	case "sweep":
		return a.call(ctx, gs.MethodRunSweep, map[string]any{})
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

// operatorKey reads the shared secret and turns it into the JWT key.
func (a *App) operatorKey() ([]byte, error) {
	secret, err := a.secret(a.out)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(secret)

	if len(secret) == 0 {
		return nil, errors.New("empty secret")
	}
	if a.rawSecret {
		return append([]byte(nil), secret...), nil
	}
	return accesstoken.DeriveKey(secret, accesstoken.PurposeOperator)
}

func (a *App) mintToken(validity time.Duration) (string, error) {
	if a.operator == "" {
		return "", fmt.Errorf("%w: -operator is required", ErrUsage)
	}
	key, err := a.operatorKey()
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)
	return auth.GenerateToken(a.operator, key, validity)
}

// bearer returns the configured token or mints a short-lived one.
func (a *App) bearer() (string, error) {
	if a.token != "" {
		return a.token, nil
	}
	if t := a.getenv(tokenEnv); t != "" {
		return t, nil
	}
	return a.mintToken(mintedValidity)
}

func (a *App) call(ctx context.Context, method string, in map[string]any) error {
	token, err := a.bearer()
	if err != nil {
		return err
	}

	inv, closer, err := a.dial(a.addr, token)
	if err != nil {
		return fmt.Errorf("dial %s: %w", a.addr, err)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := inv.Call(ctx, method, in)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
