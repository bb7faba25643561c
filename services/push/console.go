package pushsvc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/kia/core"
)

// ConsoleService logs notifications instead of delivering them.
// Sent messages are kept for inspection.
type ConsoleService struct {
	logger core.Logger
	quiet  bool

	mu   sync.Mutex
	sent []core.PushMessage
}

var _ core.PushService = (*ConsoleService)(nil)

func NewConsoleService(logger core.Logger) *ConsoleService {
	return &ConsoleService{logger: logger}
}

// NewConsoleServiceMock does not log.
func NewConsoleServiceMock() *ConsoleService {
	return &ConsoleService{quiet: true}
}

func (svc *ConsoleService) Send(_ context.Context, msg *core.PushMessage) (core.PushResult, error) {
	res := core.PushResult{}
	for range msg.Tokens {
		res.MessageIDs = append(res.MessageIDs, "console/"+uuid.NewString())
		res.SuccessCount++
	}

	svc.mu.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mu.Unlock()

	if !svc.quiet && svc.logger != nil {
		svc.logger.Info(fmt.Sprintf(
			"push notification to [%s]: %s - %s %v",
			strings.Join(msg.Tokens, ", "), msg.Title, msg.Body, msg.Data,
		))
	}
	return res, nil
}

func (svc *ConsoleService) Sent() []core.PushMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sent := make([]core.PushMessage, len(svc.sent))
	copy(sent, svc.sent)
	return sent
}

func (svc *ConsoleService) Reset() {
	svc.mu.Lock()
	svc.sent = nil
	svc.mu.Unlock()
}
