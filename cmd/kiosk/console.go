package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"kiosk/agent/internal/answer"
	"kiosk/agent/internal/catalog"
	"kiosk/agent/internal/orchestrator"
	"kiosk/agent/internal/watchdog"
)

func newConsoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Talk to the orchestrator from a terminal",
		Long: `console runs one kiosk session on stdin/stdout. Type what a visitor would
say. Buttons are commands:

  y, n     answer the "watch the video?" prompt
  done     the video finished
  close    close the video
  stay     dismiss the "are you still there?" prompt
  end      end the visit
  quit     leave the console`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.loadCatalog()
			if err != nil {
				return err
			}
			var ans answer.Answerer
			if a.cfg.OpenAI.APIKey != "" {
				ans = answer.NewOpenAI(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.Model, answer.KnowledgePrompt(cat))
			}
			c, err := newConsole(cmd.OutOrStdout(), cat, consoleOptions{
				watchdog: watchdog.Config{IdleTimeout: a.cfg.IdleTimeout(), PromptTimeout: a.cfg.PromptTimeout()},
				fallback: a.cfg.MediaFallback(),
				answer:   ans,
			})
			if err != nil {
				return err
			}
			defer c.close()
			return c.run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

type consoleOptions struct {
	watchdog watchdog.Config
	fallback time.Duration
	clock    clockwork.Clock
	answer   answer.Answerer
}

type console struct {
	out    *consoleOut
	screen *consoleScreen
	mgr    *orchestrator.Manager
	sess   *orchestrator.Session
}

func newConsole(w io.Writer, cat *catalog.Catalog, opts consoleOptions) (*console, error) {
	out := &consoleOut{w: w}
	screen := &consoleScreen{out: out}
	var speech answer.Speaker = consoleSpeech{out: out}
	if opts.answer != nil {
		speech = answer.Assisted{Speaker: speech, Answerer: opts.answer}
	}
	mgr := orchestrator.NewManager(catalog.NewHolder(cat), orchestrator.ManagerConfig{
		Watchdog:      opts.watchdog,
		MediaFallback: opts.fallback,
		Clock:         opts.clock,
	})
	sess, err := mgr.Start("console", orchestrator.Collaborators{Speech: speech, Media: screen, Display: screen})
	if err != nil {
		return nil, err
	}
	return &console{out: out, screen: screen, mgr: mgr, sess: sess}, nil
}

func (c *console) run(ctx context.Context, in io.Reader) error {
	if err := c.sess.Sync(ctx); err != nil {
		return err
	}
	sc := bufio.NewScanner(in)
	for {
		c.out.printf("> ")
		if !sc.Scan() {
			c.out.printf("\n")
			return sc.Err()
		}
		quit, err := c.handle(ctx, sc.Text())
		if err != nil || quit {
			return err
		}
	}
}

// handle submits one line and waits until the session has acted on it.
func (c *console) handle(ctx context.Context, line string) (quit bool, err error) {
	var ev orchestrator.Event
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit":
		return true, nil
	case "y":
		ev = orchestrator.ConfirmYes{}
	case "n":
		ev = orchestrator.ConfirmNo{}
	case "done":
		ev = orchestrator.MediaEnded{Instance: c.screen.current()}
	case "close":
		ev = orchestrator.CloseMedia{}
	case "stay":
		ev = orchestrator.Activity{}
	case "end":
		ev = orchestrator.EndSession{}
	default:
		ev = orchestrator.UserInput{Text: line}
	}
	if err := c.sess.Submit(ev); err != nil {
		return false, err
	}
	return false, c.sess.Sync(ctx)
}

func (c *console) close() { c.mgr.CloseAll() }

type consoleOut struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *consoleOut) printf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, format, args...)
}

type consoleSpeech struct{ out *consoleOut }

func (s consoleSpeech) Speak(_ context.Context, text string) error {
	s.out.printf("avatar: %s\n", text)
	return nil
}

func (s consoleSpeech) Talk(_ context.Context, text string) error {
	s.out.printf("avatar (own words): %s\n", text)
	return nil
}

func (s consoleSpeech) Interrupt(context.Context) error {
	s.out.printf("(avatar stops)\n")
	return nil
}

type consoleScreen struct {
	out *consoleOut

	mu       sync.Mutex
	instance uint64
}

func (s *consoleScreen) current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance
}

func (s *consoleScreen) Show(_ context.Context, cue orchestrator.Cue) error {
	switch cue.Kind {
	case orchestrator.CueMenus:
		labels := make([]string, 0, len(cue.Options))
		for _, o := range cue.Options {
			labels = append(labels, o.Label)
		}
		s.out.printf("[menu] %s\n", strings.Join(labels, " | "))
	case orchestrator.CueConfirm:
		s.out.printf("[confirm] %s (y/n)\n", cue.Text)
	case orchestrator.CueIdlePrompt:
		s.out.printf("[still there?] type 'stay' or 'end'\n")
	case orchestrator.CueBackground:
		s.out.printf("[background] %s\n", cue.Key)
	case orchestrator.CueError:
		s.out.printf("[error] %s\n", cue.Text)
	}
	return nil
}

func (s *consoleScreen) Present(_ context.Context, instance uint64, media catalog.MediaRef) error {
	s.mu.Lock()
	s.instance = instance
	s.mu.Unlock()
	src := media.URL
	if src == "" {
		src = media.VideoID
	}
	s.out.printf("[video #%d] %s %s; type 'done' when it ends or 'close' to stop\n", instance, media.Kind, src)
	return nil
}

func (s *consoleScreen) Close(_ context.Context, instance uint64) error {
	s.out.printf("[video #%d closed]\n", instance)
	return nil
}
