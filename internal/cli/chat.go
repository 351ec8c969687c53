package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/pmguide/internal/presentation/tui"
	"github.com/aretw0/pmguide/pkg/domain"
)

// ChatEngine is the subset of the engine the REPL drives.
type ChatEngine interface {
	Chat(ctx context.Context, sessionID, userID, message string) (*domain.ChatResponse, error)
	Context(ctx context.Context, sessionID string) (*domain.ConversationContext, error)
	Reset(ctx context.Context, sessionID string) error
	AdvanceStep(ctx context.Context, sessionID string) (domain.Progress, *domain.ProgressDelta, error)
}

// ChatOptions configures RunChat.
type ChatOptions struct {
	SessionID string
	UserID    string
	In        io.Reader
	Out       io.Writer
	// Render formats replies; nil prints markdown as is.
	Render tui.RenderFunc
	// Prompt is printed before each line; empty disables it.
	Prompt string
}

const chatHelp = `Commands:
  /next    commit the current step and move on
  /status  show the session progress
  /reset   start the session over
  /help    show this help
  /quit    leave the chat
A number picks the matching quick reply.`

// RunChat reads one message per line from In until EOF, /quit or ctx is done.
func RunChat(ctx context.Context, engine ChatEngine, opts ChatOptions) error {
	if opts.Render == nil {
		opts.Render = tui.PlainRenderer
	}
	c := &chat{engine: engine, opts: opts}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(opts.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		c.prompt()
		select {
		case <-ctx.Done():
			fmt.Fprintln(opts.Out)
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			done, err := c.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

type chat struct {
	engine ChatEngine
	opts   ChatOptions
	last   []string
}

func (c *chat) prompt() {
	if c.opts.Prompt != "" {
		fmt.Fprint(c.opts.Out, c.opts.Prompt)
	}
}

func (c *chat) system(format string, args ...any) {
	fmt.Fprintf(c.opts.Out, ">>> %s\n", fmt.Sprintf(format, args...))
}

func (c *chat) handle(ctx context.Context, line string) (bool, error) {
	switch line {
	case "":
		return false, nil
	case "/quit", "/exit", "q":
		return true, nil
	case "/help":
		fmt.Fprintln(c.opts.Out, chatHelp)
		return false, nil
	case "/reset":
		if err := c.engine.Reset(ctx, c.opts.SessionID); err != nil {
			return false, fmt.Errorf("reset failed: %w", err)
		}
		c.last = nil
		c.system("Session '%s' reset.", c.opts.SessionID)
		return false, nil
	case "/status":
		return false, c.status(ctx)
	case "/next":
		return false, c.advance(ctx)
	}

	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(c.last) {
		line = c.last[n-1]
		c.system("%s", line)
	}

	resp, err := c.engine.Chat(ctx, c.opts.SessionID, c.opts.UserID, line)
	if err != nil {
		return false, fmt.Errorf("chat failed: %w", err)
	}
	c.last = resp.QuickReplies
	return false, c.print(resp)
}

func (c *chat) print(resp *domain.ChatResponse) error {
	out, err := c.opts.Render(tui.Markdown(resp))
	if err != nil {
		out = tui.Markdown(resp)
	}
	_, err = fmt.Fprintln(c.opts.Out, out)
	return err
}

func (c *chat) status(ctx context.Context) error {
	cc, err := c.engine.Context(ctx, c.opts.SessionID)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	c.system("step=%s completed=%d remaining=%d messages=%d",
		cc.Progress.CurrentStep, len(cc.Progress.CompletedSteps), len(cc.Progress.RemainingTasks), len(cc.History))
	return nil
}

func (c *chat) advance(ctx context.Context) error {
	p, delta, err := c.engine.AdvanceStep(ctx, c.opts.SessionID)
	if errors.Is(err, domain.ErrUnknownStep) {
		c.system("Current step is not part of the flow; use /reset.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("advance failed: %w", err)
	}
	if delta == nil {
		c.system("Already at '%s'.", p.CurrentStep)
		return nil
	}
	c.system("Moved to '%s'.", p.CurrentStep)
	return nil
}
