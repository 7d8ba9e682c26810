package notifier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogNotifier_Send_logsMessage(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := n.Send(context.Background(), 42, "hello"); err != nil {
		t.Errorf("Send() = %v, want nil", err)
	}
	out := buf.String()
	if !strings.Contains(out, "user_id=42") || !strings.Contains(out, "text=hello") {
		t.Errorf("log output = %q, want user_id and text", out)
	}
}
