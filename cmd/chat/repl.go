package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"convobot-backend/internal/format"
	"convobot-backend/internal/models"
	"convobot-backend/internal/orchestrator"
	"convobot-backend/internal/settings"
)

const helpText = `Commands:
  /clear            clear the conversation
  /copy N           copy code block N of the last reply
  /settings         show the current settings
  /endpoint NAME    switch to gemini, demo or custom
  /key VALUE        set the API key
  /url VALUE        set the custom API base URL
  /help             show this help
  /quit             exit`

var errUnknownCommand = errors.New("unknown command (try /help)")

type repl struct {
	chat      *orchestrator.Session
	settings  *settings.Manager
	formatter *format.Formatter
	copy      *format.CopyButtons
	renderer  *glamour.TermRenderer // nil prints raw text

	in       io.Reader
	out      io.Writer
	useLiner bool

	lastBlocks []format.CodeBlock
}

// Run reads lines until EOF or /quit.
func (r *repl) Run(ctx context.Context) error {
	for _, m := range r.chat.Conversation().Messages() {
		r.printMessage(m)
	}
	fmt.Fprintln(r.out, "Type /help for commands.")

	var line *liner.State
	var scanner *bufio.Scanner
	if r.useLiner {
		line = liner.NewLiner()
		line.SetCtrlCAborts(true)
		defer line.Close()
	} else {
		scanner = bufio.NewScanner(r.in)
	}

	for {
		var raw string
		if line != nil {
			var err error
			raw, err = line.Prompt("> ")
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			if err != nil {
				return err
			}
		} else {
			fmt.Fprint(r.out, "> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			raw = scanner.Text()
		}

		input := strings.TrimSpace(raw)
		if input == "" {
			continue
		}
		if line != nil {
			line.AppendHistory(input)
		}

		if strings.HasPrefix(input, "/") {
			exit, err := r.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintln(r.out, "error:", err)
			}
			if exit {
				return nil
			}
			continue
		}

		r.send(ctx, input)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *repl) send(ctx context.Context, text string) {
	fmt.Fprintln(r.out, "Assistant is typing...")
	res, err := r.chat.Submit(ctx, text)
	if err != nil {
		// Empty or overlapping submissions are ignored.
		return
	}
	r.printMessage(res.Reply)
}

func (r *repl) printMessage(m models.Message) {
	who := "You"
	if m.Sender == models.SenderBot {
		who = "Assistant"
	}
	fmt.Fprintf(r.out, "[%s] %s:\n", m.Time, who)

	body := m.Content
	if r.renderer != nil {
		if rendered, err := r.renderer.Render(m.Content); err == nil {
			body = rendered
		}
	}
	fmt.Fprintln(r.out, strings.TrimRight(body, "\n"))

	if m.Sender != models.SenderBot {
		return
	}
	blocks := r.formatter.Format(m.Content).CodeBlocks
	r.lastBlocks = blocks
	if len(blocks) > 0 {
		r.copy.Register(blocks...)
		fmt.Fprintf(r.out, "(%d code block(s), /copy N to copy)\n", len(blocks))
	}
}

func (r *repl) handleCommand(ctx context.Context, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/clear":
		if err := r.chat.Clear(ctx); err != nil {
			return false, err
		}
		r.lastBlocks = nil
		for _, m := range r.chat.Conversation().Messages() {
			r.printMessage(m)
		}
	case "/copy":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(r.lastBlocks) {
			return false, fmt.Errorf("no code block %q in the last reply", arg)
		}
		id := r.lastBlocks[n-1].ID
		if err := r.copy.Activate(id); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, r.copy.Label(id))
	case "/settings":
		s, err := r.settings.Load(ctx)
		if err != nil {
			return false, err
		}
		key := "not set"
		if s.APIKey != "" {
			key = "set"
			if hint := s.KeyHint(); hint != "" {
				key = "set (..." + hint + ")"
			}
		}
		fmt.Fprintf(r.out, "endpoint: %s\napi key:  %s\ncustom url: %s\n", s.APIEndpoint, key, s.CustomURL)
	case "/endpoint":
		return false, r.update(ctx, settings.Patch{APIEndpoint: &arg})
	case "/key":
		return false, r.update(ctx, settings.Patch{APIKey: &arg})
	case "/url":
		return false, r.update(ctx, settings.Patch{CustomURL: &arg})
	default:
		return false, errUnknownCommand
	}
	return false, nil
}

func (r *repl) update(ctx context.Context, p settings.Patch) error {
	if _, err := r.settings.Update(ctx, p); err != nil {
		return err
	}
	r.printMessage(r.chat.Notify(ctx, settings.SavedMessage))
	return nil
}
