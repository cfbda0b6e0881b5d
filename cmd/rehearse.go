/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/interviewace/apiserver/config"
	"github.com/interviewace/apiserver/internal/ai"
	"github.com/interviewace/apiserver/internal/client/api"
	"github.com/interviewace/apiserver/internal/client/capture"
	"github.com/interviewace/apiserver/internal/client/session"
	"github.com/spf13/cobra"
)

var rehearseFlags struct {
	email        string
	password     string
	sessionID    int
	sessionType  string
	company      string
	position     string
	resumeID     int
	model        string
	language     string
	simpleEng    bool
	instructions string
}

// rehearseCmd represents the rehearse command
var rehearseCmd = &cobra.Command{
	Use:   "rehearse",
	Short: "Run an interview rehearsal session in the terminal",
	Long: `Run an interview rehearsal session in the terminal. Type what the
interviewer asked and receive a coached answer. Commands:

	/capture    analyze the shared screen for coding guidance
	/end        complete the session
	/quit       leave without completing the session
`,
	RunE: runRehearse,
}

func init() {
	rootCmd.AddCommand(rehearseCmd)

	rehearseCmd.Flags().StringVar(&rehearseFlags.email, "email", "", "account email")
	rehearseCmd.Flags().StringVar(&rehearseFlags.password, "password", "", "account password")
	rehearseCmd.Flags().IntVar(&rehearseFlags.sessionID, "session", 0, "resume an existing session by id")
	rehearseCmd.Flags().StringVar(&rehearseFlags.sessionType, "type", "trial", "session type: trial or premium")
	rehearseCmd.Flags().StringVar(&rehearseFlags.company, "company", "", "company you are interviewing with")
	rehearseCmd.Flags().StringVar(&rehearseFlags.position, "position", "", "position you are interviewing for")
	rehearseCmd.Flags().IntVar(&rehearseFlags.resumeID, "resume", 0, "resume id to answer from")
	rehearseCmd.Flags().StringVar(&rehearseFlags.model, "model", "gpt-4", "ai model: gpt-4, claude-3.5, or gpt-3.5-turbo")
	rehearseCmd.Flags().StringVar(&rehearseFlags.language, "language", "en", "response language")
	rehearseCmd.Flags().BoolVar(&rehearseFlags.simpleEng, "simple-english", false, "prefer plain phrasing")
	rehearseCmd.Flags().StringVar(&rehearseFlags.instructions, "instructions", "", "extra instructions for the coach")
}

func runRehearse(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	ctx := cmd.Context()

	if rehearseFlags.email == "" || rehearseFlags.password == "" {
		return errors.New("--email and --password are required")
	}

	gateway, err := ai.NewGateway(cfg.OpenRouter)
	if err != nil {
		return err
	}

	client := api.New(cfg.Client.ServerURL)
	user, err := client.Login(ctx, rehearseFlags.email, rehearseFlags.password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%d credits)\n", user.Name, user.Credits)

	var screen *capture.Screen
	if cfg.Client.CaptureCmd != "" {
		source, err := capture.NewExecSource(cfg.Client.CaptureCmd)
		if err != nil {
			return err
		}
		screen = capture.NewScreen(source)
	}

	cache := session.NewFileCache(cfg.Client.CacheDir)
	controller := session.NewController(client, gateway, cache, nil, screen)
	controller.OnNotice = func(message string) {
		fmt.Println(message)
	}

	if rehearseFlags.sessionID > 0 {
		err = controller.Resume(ctx, rehearseFlags.sessionID)
	} else {
		err = controller.Start(ctx, api.CreateSessionRequest{
			SessionType:       rehearseFlags.sessionType,
			Company:           rehearseFlags.company,
			Position:          rehearseFlags.position,
			ResumeID:          rehearseFlags.resumeID,
			Language:          rehearseFlags.language,
			SimpleEnglish:     rehearseFlags.simpleEng,
			ExtraInstructions: rehearseFlags.instructions,
			AIModel:           rehearseFlags.model,
		})
	}
	if err != nil {
		return err
	}

	if screen != nil {
		if err := controller.Connect(ctx); err != nil && !errors.Is(err, capture.ErrUnsupported) {
			fmt.Println("Connect failed:", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go runCountdown(runCtx, controller, cancel)

	fmt.Println(`Type the interviewer's question and press enter. /capture, /end, /quit.`)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if runCtx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			controller.Disconnect()
			return nil
		case line == "/end":
			return controller.End(ctx)
		case line == "/capture":
			entry, err := controller.AnalyzeScreen(ctx)
			if err != nil {
				fmt.Println("Capture failed:", err)
				continue
			}
			printEntry(entry)
		default:
			entry, err := controller.ProcessAnswer(ctx, line)
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			printEntry(entry)
		}
	}
	return scanner.Err()
}

func runCountdown(ctx context.Context, controller *session.Controller, cancel context.CancelFunc) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := controller.Tick(ctx)
			if err != nil {
				fmt.Println("Failed to complete the session:", err)
			}
			if expired {
				fmt.Println("Trial time is up. Session completed.")
				cancel()
				return
			}
		}
	}
}

func printEntry(entry session.Entry) {
	fmt.Printf("\n--- suggested answer (confidence %.2f) ---\n%s\n---\n\n", entry.Confidence, entry.Answer)
}
