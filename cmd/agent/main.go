// Package main runs the terminal playtest agent: it polls a session by
// join token and lets the tester pick scenes, report issues and answer
// polls from stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/airlog/backend/internal/client"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "agent",
	Short:         "Terminal playtest feedback agent",
	Long:          `Polls a playtest session by join token and syncs issue toggles and poll answers back to the server.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runAgent,
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080/api", "API base URL")
	rootCmd.Flags().StringVar(&token, "token", "", "join token (required)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "log each poll and write")
	_ = rootCmd.MarkFlagRequired("token")
}

func runAgent(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	if verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	store := client.New(serverURL, timeout)
	ctrl := client.NewController(store, token, client.Options{
		Logger: logger,
		OnWrite: func(res client.WriteResult) {
			if res.Err != nil {
				fmt.Printf("! write failed (%s): %v\n", res.Op, res.Err)
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go renderUpdates(ctrl)
	go readCommands(ctrl)

	<-quit
	return nil
}

func renderUpdates(ctrl *client.Controller) {
	var lastPhase client.Phase
	for state := range ctrl.Updates() {
		if state.Phase != lastPhase {
			lastPhase = state.Phase
			switch state.Phase {
			case client.PhaseNotStarted:
				fmt.Println("waiting for the session to start...")
			case client.PhaseActive:
				fmt.Printf("session active: %s\n", state.Session.Name)
				printScenes(state)
			case client.PhaseEnded:
				fmt.Println("session has ended, thanks for testing")
			}
		}
	}
}

func printScenes(state *client.State) {
	for i, sc := range state.Scenes {
		marker := " "
		if sc.ID == state.SelectedSceneID {
			marker = "*"
		}
		fmt.Printf(" %s %d. %s (%d questions)\n", marker, i+1, sc.Name, len(sc.PollQuestions))
	}
	if len(state.IssueOptions) > 0 {
		fmt.Printf("issue vocabulary: %s\n", strings.Join(state.IssueOptions, ", "))
	}
}

// readCommands drives the controller from stdin:
//
//	scene <id>         select a scene
//	issue <name>       toggle a reported issue
//	answer <qid> <opt> answer a poll question
//	retry              resume polling after an error stop
func readCommands(ctrl *client.Controller) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "scene":
			if len(fields) < 2 {
				fmt.Println("usage: scene <scene-id>")
				continue
			}
			id, err := uuid.Parse(fields[1])
			if err != nil {
				fmt.Println("invalid scene id")
				continue
			}
			ctrl.SelectScene(id)
		case "issue":
			if len(fields) < 2 {
				fmt.Println("usage: issue <name>")
				continue
			}
			ctrl.ToggleIssue(strings.Join(fields[1:], " "))
		case "answer":
			if len(fields) < 3 {
				fmt.Println("usage: answer <question-id> <option>")
				continue
			}
			id, err := uuid.Parse(fields[1])
			if err != nil {
				fmt.Println("invalid question id")
				continue
			}
			ctrl.AnswerPoll(id, strings.Join(fields[2:], " "))
		case "retry":
			ctrl.Retry()
		default:
			fmt.Println("commands: scene, issue, answer, retry")
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
