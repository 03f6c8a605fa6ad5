package conversations

import (
	"testing"
	"time"
)

func TestAppendOrdersMessages(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	c := Conversation{ID: "c1", CallID: "call1"}
	c = c.Append(RoleUser, "I need an appointment", now)
	c = c.Append(RoleAssistant, "Of course, when works for you?", now.Add(2*time.Second))

	if len(c.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(c.Messages))
	}
	if c.Messages[0].Role != RoleUser || c.Messages[1].Role != RoleAssistant {
		t.Fatalf("unexpected role order: %q %q", c.Messages[0].Role, c.Messages[1].Role)
	}
	if c.Messages[0].Timestamp != now {
		t.Fatalf("expected timestamp %v, got %v", now, c.Messages[0].Timestamp)
	}
}

func TestAppendGrowsByExactlyOne(t *testing.T) {
	now := time.Now()
	c := Conversation{}
	for i := 0; i < 5; i++ {
		before := len(c.Messages)
		c = c.Append(RoleUser, "hi", now)
		if len(c.Messages) != before+1 {
			t.Fatalf("expected length %d, got %d", before+1, len(c.Messages))
		}
	}
}

func TestMessagesForCompletionStripsTimestamps(t *testing.T) {
	now := time.Now()
	c := Conversation{}
	c = c.Append(RoleSystem, "be helpful", now)
	c = c.Append(RoleUser, "hola", now)

	got := c.MessagesForCompletion()
	if len(got) != 2 {
		t.Fatalf("expected 2 completion messages, got %d", len(got))
	}
	if got[0].Role != "system" || got[0].Content != "be helpful" {
		t.Fatalf("unexpected first message: %+v", got[0])
	}
	if got[1].Role != "user" || got[1].Content != "hola" {
		t.Fatalf("unexpected second message: %+v", got[1])
	}
}

func TestMessagesForCompletionEmpty(t *testing.T) {
	c := Conversation{}
	got := c.MessagesForCompletion()
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %d", len(got))
	}
}
