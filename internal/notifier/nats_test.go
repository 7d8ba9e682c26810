package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"
)

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func TestNATSNotifier_Send(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub, "", discardLogger())

	if err := n.Send(context.Background(), 99, "new job"); err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if pub.subject != DefaultNATSSubject {
		t.Errorf("subject = %q, want %q", pub.subject, DefaultNATSSubject)
	}
	var msg AlertMessage
	if err := json.Unmarshal(pub.data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.UserID != 99 || msg.Text != "new job" {
		t.Errorf("message = %+v", msg)
	}
}

func TestNATSNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection closed")}
	n := NewNATSNotifier(pub, "alerts", discardLogger())

	if err := n.Send(context.Background(), 1, "x"); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestNATSNotifier_Integration(t *testing.T) {
	url := os.Getenv("APPLYNOW_TEST_NATS_URL")
	if url == "" {
		t.Skip("APPLYNOW_TEST_NATS_URL not set")
	}

	conn, err := ConnectNATS(url, 2*time.Second)
	if err != nil {
		t.Fatalf("ConnectNATS: %v", err)
	}
	defer conn.Close()

	sub, err := conn.SubscribeSync("applynow.test")
	if err != nil {
		t.Fatalf("SubscribeSync: %v", err)
	}

	n := NewNATSNotifier(conn, "applynow.test", discardLogger())
	if err := n.Send(context.Background(), 5, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	conn.Flush()

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg: %v", err)
	}
	var got AlertMessage
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.UserID != 5 {
		t.Errorf("user_id = %d, want 5", got.UserID)
	}
}
