package emailsvc

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// SentMessages keeps every message sent by the console services, for tests.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// ResetSentMessages empties SentMessages.
func ResetSentMessages() {
	mu.Lock()
	SentMessages = make([]core.EmailMessage, 0)
	mu.Unlock()
}

// LastSentMessages returns a copy of SentMessages.
func LastSentMessages() []core.EmailMessage {
	mu.Lock()
	defer mu.Unlock()
	msgs := make([]core.EmailMessage, len(SentMessages))
	copy(msgs, SentMessages)
	return msgs
}

type consoleService struct {
	from          mail.Address
	subjPrefix    string
	logger        core.Logger
	disableOutput bool
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints emails to the standard logger instead of sending them.
func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail,
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), errors.Wrap(err, "rendering email"))
		return
	}
	if msg.HasRecipients() && msg.HasContent() {
		out := svc.format(*msg)
		if !svc.disableOutput {
			log.Println(out)
		}
		mu.Lock()
		SentMessages = append(SentMessages, *msg)
		mu.Unlock()
	}
}

func (svc consoleService) format(msg core.EmailMessage) string {
	body := new(strings.Builder)

	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		_, _ = fmt.Fprintf(body, "BCC: %s\r\n", joinAddresses(msg.Bcc))
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	if w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain"}}); err == nil {
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)
	}
	if msg.HTMLContent != "" {
		if w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html"}}); err == nil {
			_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
		}
	}
	_ = altW.Close()
	return body.String()
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

type consoleServiceMock struct {
	consoleService
}

// NewConsoleServiceMock sends synchronously and silently.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleServiceMock{
		consoleService: consoleService{
			from:          conf.DefaultFromEmail,
			subjPrefix:    "[" + conf.AppName + "] ",
			logger:        logger,
			disableOutput: true,
		},
	}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		svc.sendMessage(msg)
	}
}
