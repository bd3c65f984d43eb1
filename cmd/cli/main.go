package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/reflections/cmd/cli/internal/commands"
	"github.com/wolfeidau/reflections/internal/ai"
	"github.com/wolfeidau/reflections/internal/client"
	"github.com/wolfeidau/reflections/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Signup   commands.SignupCmd   `cmd:"" help:"Create an account"`
		Login    commands.LoginCmd    `cmd:"" help:"Sign in"`
		Logout   commands.LogoutCmd   `cmd:"" help:"Sign out"`
		Whoami   commands.WhoamiCmd   `cmd:"" help:"Show the signed in user"`
		Posts    commands.PostsCmd    `cmd:"" help:"Manage blog posts"`
		Profile  commands.ProfileCmd  `cmd:"" help:"Manage your profile"`
		Ideas    commands.IdeasCmd    `cmd:"" help:"Generate blog post ideas"`
		Rephrase commands.RephraseCmd `cmd:"" help:"Rephrase part of an HTML document"`

		APIURL    string        `name:"api-url" help:"Reflections API URL" default:"${api_url}" env:"REFLECTIONS_API_URL"`
		Timeout   time.Duration `help:"API request timeout" default:"30s" env:"REFLECTIONS_TIMEOUT"`
		ConfigDir string        `help:"Session directory (default: ~/.reflections/)" env:"REFLECTIONS_CONFIG_DIR"`
		CacheDir  string        `help:"Read cache directory (default: <config-dir>/cache)" env:"REFLECTIONS_CACHE_DIR"`
		NoCache   bool          `help:"Disable the read cache" env:"REFLECTIONS_NO_CACHE"`
		GeminiKey string        `name:"gemini-api-key" help:"Gemini API key for ideas and rephrasing" env:"GEMINI_API_KEY"`
		Model     string        `help:"Gemini model" default:"${model}" env:"REFLECTIONS_MODEL"`
		Debug     bool          `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	if err := commands.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("reflections"),
		kong.Description("Reflections blog client."),
		kong.Vars{
			"version": version,
			"api_url": client.DefaultBaseURL,
			"model":   ai.DefaultModel,
		},
		kong.Configuration(commands.YAMLResolver, commands.DefaultConfigFile),
		kong.BindTo(ctx, (*context.Context)(nil)))

	logger.Setup(cli.Debug)
	if !cli.Debug {
		// progress goes to stdout, only problems are logged
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	err := cmd.Run(&commands.Globals{
		Debug:        cli.Debug,
		Version:      version,
		APIURL:       cli.APIURL,
		Timeout:      cli.Timeout,
		ConfigDir:    cli.ConfigDir,
		CacheDir:     cli.CacheDir,
		NoCache:      cli.NoCache,
		GeminiAPIKey: cli.GeminiKey,
		Model:        cli.Model,
	})
	cmd.FatalIfErrorf(err)
}
