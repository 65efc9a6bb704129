package main

import (
	"fmt"

	"github.com/readme-readyou/readme-readyou/internal/config"
	"github.com/readme-readyou/readme-readyou/internal/github"
	"github.com/readme-readyou/readme-readyou/internal/prompt"
	"github.com/readme-readyou/readme-readyou/internal/readme"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPromptCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "prompt <handle>",
		Short: "Fetch a GitHub profile and print the generation prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := readme.NormalizeIdentifier(args[0])
			mode := readme.ParseMode(v.GetString("mode"))
			if !mode.Known() {
				return fmt.Errorf("unknown mode %q", mode)
			}
			gh := github.NewClient(config.GitHubConfig{
				APIURL: v.GetString("api-url"),
				Token:  v.GetString("token"),
				RPS:    5,
				Burst:  5,
			})
			user, err := gh.FetchUser(cmd.Context(), handle)
			if err != nil {
				return err
			}
			repos, err := gh.FetchRepos(cmd.Context(), handle)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt.Build(*user, repos, mode))
			return err
		},
	}
	cmd.Flags().String("mode", string(readme.ModeStandard), "standard, minimal, detailed or creative")
	cmd.Flags().String("api-url", "https://api.github.com", "GitHub REST API base URL")
	cmd.Flags().String("token", "", "GitHub token (defaults to $GITHUB_TOKEN)")
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindEnv("token", "GITHUB_TOKEN")
	_ = v.BindEnv("api-url", "GITHUB_API_URL")
	return cmd
}
