package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/probeworks/scout/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	// A local .env is a convenience for API keys; absence is fine.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "scout",
		Usage: "Iterative company research agent",
		Commands: []*cli.Command{
			researchCommand(),
			presetsCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.New("info", os.Stderr).Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
