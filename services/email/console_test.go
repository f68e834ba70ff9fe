package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/testutil"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	ResetSentMessages()
	svc := NewConsoleServiceMock(core.NewTestConfig(), testutil.NewLogger())
	john := mail.Address{Name: "John Student", Address: "john@ghs.test"}

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{john}, Subject: "Grade posted", BodyStr: "MATH101: 92 (A)"},
		&core.EmailMessage{Subject: "nobody", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{john}, Subject: "empty"},
	)

	sent := LastSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Grade posted", sent[0].Subject)
	assert.Equal(t, "MATH101: 92 (A)", sent[0].TextContent)
}

func TestConsoleService_format(t *testing.T) {
	svc := consoleService{
		from:       mail.Address{Name: "Shule", Address: "noreply@localhost"},
		subjPrefix: "[Shule] ",
	}

	tests := []struct {
		name    string
		msg     core.EmailMessage
		want    []string
		notWant []string
	}{
		{
			name: "text only",
			msg: core.EmailMessage{
				To:          []mail.Address{{Address: "john@ghs.test"}, {Address: "mary@ghs.test"}},
				Subject:     "Grade posted",
				TextContent: "MATH101: 92 (A)",
			},
			want:    []string{"Subject: [Shule] Grade posted\r\n", "To: <john@ghs.test>, <mary@ghs.test>\r\n", "text/plain", "MATH101: 92 (A)"},
			notWant: []string{"CC:", "BCC:", "text/html"},
		},
		{
			name: "html and copies",
			msg: core.EmailMessage{
				To:          []mail.Address{{Address: "john@ghs.test"}},
				Cc:          []mail.Address{{Address: "jane@ghs.test"}},
				Bcc:         []mail.Address{{Address: "audit@ghs.test"}},
				Subject:     "Grade posted",
				TextContent: "MATH101: 92 (A)",
				HTMLContent: "<b>MATH101</b>",
			},
			want: []string{"CC: <jane@ghs.test>\r\n", "BCC: <audit@ghs.test>\r\n", "text/html", "<b>MATH101</b>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := svc.format(tt.msg)
			assert.True(t, strings.HasPrefix(out, `From: "Shule" <noreply@localhost>`+"\r\n"), out)
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, out, s)
			}
		})
	}
}
