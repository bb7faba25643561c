package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

var _ core.Logger = nopLogger{}

func TestConsoleService(t *testing.T) {
	conf := &core.Config{AppName: "KIA", DefaultFromEmail: mail.Address{Name: "KIA", Address: "no-reply@kia.test"}}
	out := new(strings.Builder)
	svc := &consoleService{from: conf.DefaultFromEmail, subjPrefix: "[KIA] ", logger: nopLogger{}, out: out, sync: true}
	ResetSentMessages()

	svc.SendMessages(
		&core.EmailMessage{Subject: "Nobody", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{{Name: "Leila", Address: "leila@kia.test"}}, Subject: "Hello", BodyStr: "Hi Leila"},
	)

	msg, ok := LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, "Hi Leila", msg.TextContent)

	raw := out.String()
	assert.Contains(t, raw, "Subject: [KIA] Hello\r\n")
	assert.Contains(t, raw, `To: "Leila" <leila@kia.test>`)
	assert.Contains(t, raw, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, raw, "Hi Leila")
	assert.NotContains(t, raw, "text/html", "empty parts are skipped")
	assert.NotContains(t, raw, "lost", "messages without recipients are dropped")

	ResetSentMessages()
	_, ok = LastSentMessage()
	assert.False(t, ok)
}
