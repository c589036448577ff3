package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/harunnryd/mcprelay/internal/config"
	relayErrors "github.com/harunnryd/mcprelay/internal/errors"
	"github.com/harunnryd/mcprelay/internal/relay"
)

// REPL reads one message per line and prints the relay's answer.
type REPL struct {
	chat        relay.Chatter
	in          *bufio.Scanner
	out         io.Writer
	unavailable string
	errorPrefix string
}

func NewREPL(chat relay.Chatter, cfg config.RelayConfig, in io.Reader, out io.Writer) *REPL {
	unavailable := cfg.UnavailableMessage
	if unavailable == "" {
		unavailable = config.DefaultRelayUnavailableMessage
	}
	errorPrefix := cfg.ErrorPrefix
	if errorPrefix == "" {
		errorPrefix = config.DefaultRelayErrorPrefix
	}
	return &REPL{
		chat:        chat,
		in:          bufio.NewScanner(in),
		out:         out,
		unavailable: unavailable,
		errorPrefix: errorPrefix,
	}
}

// Start loops until EOF, "/exit" or ctx cancellation.
func (r *REPL) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Type '/exit' to quit.")

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}

		line := strings.TrimSpace(r.in.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		fmt.Fprintln(r.out, r.Ask(ctx, line))
	}
}

// Ask runs one message and renders failures the same way the HTTP surface does.
func (r *REPL) Ask(ctx context.Context, message string) string {
	answer, err := r.chat.Chat(ctx, message)
	if err == nil {
		return answer
	}
	if relayErrors.IsCategory(err, relayErrors.ErrSessionUnavailable) {
		return r.unavailable
	}
	return r.errorPrefix + err.Error()
}
