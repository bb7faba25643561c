package emailsvc

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
)

var (
	sent   = make([]core.EmailMessage, 0)
	sentMu sync.Mutex
)

type consoleService struct {
	from       mail.Address
	subjPrefix string
	logger     core.Logger
	out        io.Writer // nil discards the output
	sync       bool
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints emails to stdout instead of sending them.
func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail,
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		out:        os.Stdout,
	}
}

// NewConsoleServiceMock sends synchronously and silently.
// Sent messages can be inspected with LastSentMessage.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail,
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		sync:       true,
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.sendMessage(msg)
		} else {
			go svc.sendMessage(msg)
		}
	}
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	if svc.out != nil {
		raw, err := svc.format(*msg)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("formatting email: %v", err), err)
			return
		}
		_, _ = svc.out.Write(raw)
	}

	sentMu.Lock()
	sent = append(sent, *msg)
	sentMu.Unlock()
}

// format renders msg as a multipart/alternative MIME message.
func (svc *consoleService) format(msg core.EmailMessage) ([]byte, error) {
	var buf bytes.Buffer
	parts := multipart.NewWriter(&buf)

	header := []struct{ key, value string }{
		{"From", svc.from.String()},
		{"To", joinAddresses(msg.To)},
		{"Subject", svc.subjPrefix + msg.Subject},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + parts.Boundary()},
	}
	for _, h := range header {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}
	buf.WriteString("\r\n")

	contents := []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", msg.TextContent},
		{"text/html; charset=utf-8", msg.HTMLContent},
	}
	for _, c := range contents {
		if c.body == "" {
			continue
		}
		w, err := parts.CreatePart(textproto.MIMEHeader{"Content-Type": {c.contentType}})
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s part", c.contentType)
		}
		fmt.Fprintf(w, "%s\r\n", c.body)
	}
	if err := parts.Close(); err != nil {
		return nil, errors.Wrap(err, "closing multipart writer")
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ResetSentMessages forgets the messages sent so far.
func ResetSentMessages() {
	sentMu.Lock()
	sent = sent[:0]
	sentMu.Unlock()
}

// LastSentMessage returns the last message sent, if any.
func LastSentMessage() (core.EmailMessage, bool) {
	sentMu.Lock()
	defer sentMu.Unlock()
	if len(sent) == 0 {
		return core.EmailMessage{}, false
	}
	return sent[len(sent)-1], true
}
