package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m4xw311/agentchat/chat"
	"github.com/m4xw311/agentchat/config"
	"github.com/m4xw311/agentchat/session"
	"github.com/m4xw311/agentchat/transport"
)

const version = "0.3.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agentchat",
		Short:         "Chat with a remote agent from your terminal",
		Long:          "agentchat is an interactive terminal client for conversational agents.\nIt streams responses as they arrive and collects structured input when\nthe agent asks for it.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringP("host", "H", "", "agent host (default localhost)")
	pf.IntP("port", "p", 0, "agent port (default 8000)")
	pf.StringP("token", "t", "", "authentication token")
	pf.Bool("tls", false, "connect over TLS")
	pf.Bool("debug", false, "enable debug logging")
	pf.Bool("show-streaming", true, "echo response text live while it streams")
	pf.Bool("clear-streaming", true, "replace the live echo with the formatted panel")

	root.AddCommand(newA2ACmd(), newWSCmd())
	return root
}

func newA2ACmd() *cobra.Command {
	return &cobra.Command{
		Use:   "a2a [initial prompt...]",
		Short: "Chat over HTTP with streamed (SSE) responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, args, "a2a")
		},
	}
}

func newWSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ws [initial prompt...]",
		Short: "Chat over a websocket connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, args, "ws")
		},
	}
}

// resolveConfig layers the sources in documented precedence order:
// defaults and config files first, then flags the user actually set, and
// the environment last.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("token") {
		cfg.Token, _ = flags.GetString("token")
	}
	if flags.Changed("tls") {
		cfg.TLS, _ = flags.GetBool("tls")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("show-streaming") {
		cfg.ShowStreaming, _ = flags.GetBool("show-streaming")
	}
	if flags.Changed("clear-streaming") {
		cfg.ClearStreaming, _ = flags.GetBool("clear-streaming")
	}

	cfg.ApplyEnv()
	return cfg, nil
}

func runChat(cmd *cobra.Command, args []string, protocol string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()

	card, err := transport.FetchCard(ctx, nil, cfg.BaseURL(), cfg.Token)
	if err != nil {
		return err
	}
	fmt.Printf("Agent card detected for %s\n", card.DisplayName())

	sess := session.New(card.DisplayName())

	var client transport.Client
	switch protocol {
	case "ws":
		client = transport.NewWSClient(cfg.BaseURL(), cfg.Token, sess.ContextID)
	default:
		client = transport.NewA2AClient(cfg.BaseURL(), cfg.Token, sess.ContextID)
	}

	if cfg.Debug {
		fmt.Fprintf(os.Stderr, "DEBUG: %s via %s at %s\n", sess, protocol, cfg.BaseURL())
	}

	initialPrompt := strings.TrimSpace(strings.Join(args, " "))
	return chat.New(cfg, client, card, sess).Run(ctx, initialPrompt)
}
