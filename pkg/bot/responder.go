// Package bot answers incoming messages with stream links. It is the
// interactive half of the gateway: media sent to the bot comes back as a
// ready-to-play URL, and /start and /help explain the flow. Streaming never
// depends on this package; with replies disabled every existing URL keeps
// working.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/streamgate/streamgate/internal/bytesize"
	"github.com/streamgate/streamgate/internal/logger"
	"github.com/streamgate/streamgate/pkg/telegram"
)

// Responder consumes the home client's update stream and replies with usage
// text and stream links. Replies are best-effort: a failed send is logged
// and the loop moves on.
type Responder struct {
	client  telegram.Client
	baseURL string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewResponder creates a responder that advertises links under baseURL.
func NewResponder(client telegram.Client, baseURL string) *Responder {
	return &Responder{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Start begins consuming updates in a background goroutine. A transport
// without update support (nil channel) leaves the responder off; that is a
// reduced surface, not an error.
func (r *Responder) Start(ctx context.Context) {
	updates := r.client.Updates()
	if updates == nil {
		logger.Info("bot replies disabled: transport provides no updates")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.loop(ctx, updates)
	}()

	logger.Info("bot responder started")
}

// Stop terminates the update loop and waits for it to drain. Safe to call
// multiple times and without a prior Start.
func (r *Responder) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// StreamLink composes the public stream URL for one message.
func (r *Responder) StreamLink(chatID int64, messageID int) string {
	return fmt.Sprintf("%s/stream/%d/%d", r.baseURL, chatID, messageID)
}

func (r *Responder) loop(ctx context.Context, updates <-chan telegram.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			r.handle(ctx, u)
		}
	}
}

// handle answers one update. Media in a private chat gets a stream link,
// /start and /help get usage text, everything else is ignored.
func (r *Responder) handle(ctx context.Context, u telegram.Update) {
	var text string
	switch {
	case u.Media != nil && u.ChatID > 0:
		text = r.linkReply(u)
		logger.Info("stream link generated",
			logger.ChatID(u.ChatID),
			logger.MessageID(u.MessageID),
			logger.FileName(u.Media.FileName),
			logger.FileSize(u.Media.Size))
	case command(u.Text) == "start":
		text = r.welcome()
	case command(u.Text) == "help":
		text = r.help()
	default:
		return
	}

	if err := r.client.SendMessage(ctx, u.ChatID, text); err != nil {
		logger.Warn("bot reply failed",
			logger.ChatID(u.ChatID),
			logger.MessageID(u.MessageID),
			logger.Err(err))
	}
}

func (r *Responder) linkReply(u telegram.Update) string {
	m := u.Media

	name := m.FileName
	if name == "" {
		name = string(m.Kind)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", name)
	fmt.Fprintf(&b, "Size: %s\n", bytesize.ByteSize(m.Size).String())
	if m.MIMEType != "" {
		fmt.Fprintf(&b, "Type: %s\n", m.MIMEType)
	}
	fmt.Fprintf(&b, "\nStream link:\n%s\n", r.StreamLink(u.ChatID, u.MessageID))
	b.WriteString("\nOpen it in VLC via Media > Open Network Stream. Seeking is supported.")
	return b.String()
}

func (r *Responder) welcome() string {
	return fmt.Sprintf(`Send me a video, audio or document file and I will reply with a direct streaming link.

Commands:
  /start - this message
  /help  - usage details

Base URL: %s`, r.baseURL)
}

func (r *Responder) help() string {
	return fmt.Sprintf(`How to use:
 1. Send any media file to this chat.
 2. Copy the stream link from the reply.
 3. Open the link in VLC: Media > Open Network Stream.

Links honor HTTP range requests, so players can seek anywhere in the file.

Base URL: %s`, r.baseURL)
}

// command extracts a bot command from message text: "/start", possibly with
// a bot mention ("/start@streamgate_bot") and trailing arguments. Returns ""
// for anything that is not a command.
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text[1:], " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}
