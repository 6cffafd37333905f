package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/postgraph/graph/interrupt"
	"github.com/dshills/postgraph/session"
	"github.com/dshills/postgraph/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Write a post interactively in the terminal",
	Long: `Runs one session in the terminal. At each review step, answer with:

  ok               accept the draft or image
  edit <text>      replace the draft with your own text
  feedback <text>  ask for a revised draft
  image <url>      use a different image
  quit             abandon the session`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		in := workflow.Input{}
		in.URL, _ = cmd.Flags().GetString("url")
		in.Platform, _ = cmd.Flags().GetString("platform")
		in.ImageWanted, _ = cmd.Flags().GetBool("image")
		in.Credential, _ = cmd.Flags().GetString("credential")
		if len(args) > 0 {
			in.Topic = args[0]
		}

		a, err := buildApp(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		return runInteractive(cmd.Context(), a.service, in, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("url", "", "Article URL to write about")
	runCmd.Flags().StringP("platform", "p", "twitter", "Target platform: twitter or linkedin")
	runCmd.Flags().Bool("image", false, "Attach an image to the post")
	runCmd.Flags().String("credential", "", "LinkedIn access token")
}

// errQuit ends an interactive session at the user's request.
var errQuit = errors.New("quit")

// runInteractive drives one session, reading review answers from r.
func runInteractive(ctx context.Context, svc *session.Service, in workflow.Input, r io.Reader, w io.Writer) error {
	id, err := svc.CreateSession(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Session %s\n", id)

	res, err := svc.Advance(ctx, id)
	scanner := bufio.NewScanner(r)
	for err == nil && res.Type == session.TypeInterrupt {
		printInterrupt(w, res.Interrupt)

		var value interrupt.Resume
		value, err = prompt(scanner, w, res.Interrupt.Kind)
		if errors.Is(err, errQuit) {
			fmt.Fprintln(w, "Abandoning session.")
			return svc.DeleteSession(ctx, id)
		}
		if err != nil {
			return err
		}

		pending := res.Interrupt
		res, err = svc.Resume(ctx, id, value)
		var perr *interrupt.ProtocolError
		if errors.As(err, &perr) {
			fmt.Fprintf(w, "Not understood: %v\n", perr)
			res, err = session.StepResult{Type: session.TypeInterrupt, Interrupt: pending}, nil
		}
	}
	if err != nil {
		return err
	}

	c := res.Completion
	fmt.Fprintln(w, "\nPublished:")
	fmt.Fprintln(w, c.PostDraft)
	if c.PostURL != nil {
		fmt.Fprintf(w, "\n%s\n", *c.PostURL)
	}
	return nil
}

func printInterrupt(w io.Writer, in *interrupt.Interrupt) {
	switch in.Kind {
	case interrupt.KindPost:
		fmt.Fprintf(w, "\n--- Draft ---\n%s\n-------------\n", in.Text())
		fmt.Fprintln(w, "ok | edit <text> | feedback <text> | quit")
	case interrupt.KindImage:
		if in.Content == nil {
			fmt.Fprintln(w, "\nNo image found.")
		} else {
			fmt.Fprintf(w, "\nImage: %s\n", in.Text())
		}
		fmt.Fprintln(w, "ok | image <url> | quit")
	}
}

// prompt reads lines until one parses as an answer for kind.
func prompt(scanner *bufio.Scanner, w io.Writer, kind interrupt.Kind) (interrupt.Resume, error) {
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return interrupt.Resume{}, err
			}
			return interrupt.Resume{}, errQuit
		}

		value, err := parseAnswer(scanner.Text())
		if errors.Is(err, errQuit) {
			return interrupt.Resume{}, err
		}
		if err == nil {
			_, err = value.For(kind)
		}
		if err != nil {
			fmt.Fprintf(w, "%v\n", err)
			continue
		}
		return value, nil
	}
}

func parseAnswer(line string) (interrupt.Resume, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "ok", "y", "yes":
		return interrupt.Satisfied(), nil
	case "quit", "exit":
		return interrupt.Resume{}, errQuit
	case "edit", "feedback", "image":
		if arg == "" {
			return interrupt.Resume{}, fmt.Errorf("%s needs text after it", cmd)
		}
		switch strings.ToLower(cmd) {
		case "edit":
			return interrupt.Edit(arg), nil
		case "feedback":
			return interrupt.Feedback(arg), nil
		default:
			return interrupt.ReplaceImage(arg), nil
		}
	}
	return interrupt.Resume{}, fmt.Errorf("unknown answer %q", cmd)
}
