// Command formchat talks to a Formpilot agent from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/pkg/logger"
)

func main() {
	agentID := flag.String("agent", "", "agent id to talk to (defaults to the profile's agent_id)")
	profilePath := flag.String("profile", "", "path to a TOML profile")
	debug := flag.Bool("debug", false, "log backend requests to stderr")
	flag.Parse()

	logger.Init()
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else if os.Getenv("LOG_LEVEL") == "" {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	cliLog := logger.For(logger.CLI)

	path := *profilePath
	required := path != ""
	if path == "" {
		path = defaultProfilePath()
	}
	profile, err := LoadProfile(path, required)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	if *agentID == "" {
		*agentID = profile.AgentID
	}
	if *agentID == "" {
		color.Red("Error: no agent id; pass -agent or set agent_id in %s\n", path)
		os.Exit(2)
	}

	client, err := formapi.NewClient(formapi.Config{
		BaseURL:   profile.BaseURL,
		Token:     profile.Token,
		UserAgent: "formchat/1.0",
	})
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cliLog.Debug().Str("agent_id", *agentID).Str("base_url", profile.BaseURL).Msg("Starting conversation")
	if err := newChat(client.Conversations, os.Stdout).run(ctx, *agentID, os.Stdin); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Conversation ended with an error")
		fmt.Fprintln(os.Stderr)
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}
