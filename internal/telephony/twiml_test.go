package telephony

import (
	"strings"
	"testing"
)

func testRenderer() *Renderer {
	return NewRenderer("es-ES", "https://example.com/webhooks/twilio/gather")
}

func TestRenderGreeting(t *testing.T) {
	out, err := testRenderer().RenderGreeting("¡Hola! ¿En qué puedo ayudarte?")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, want := range []string{
		"<Response>",
		`input="speech"`,
		`action="https://example.com/webhooks/twilio/gather"`,
		`speechTimeout="auto"`,
		`language="es-ES"`,
		"¿En qué puedo ayudarte?",
		"<Hangup",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected markup to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderReplyWithAudio(t *testing.T) {
	out, err := testRenderer().RenderReply("texto", "https://example.com/audio/CA1-1.mp3", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(out, "https://example.com/audio/CA1-1.mp3") {
		t.Fatalf("expected Play url, got:\n%s", out)
	}
	if strings.Contains(out, "texto") {
		t.Fatalf("expected no Say fallback when audio present, got:\n%s", out)
	}
	if !strings.Contains(out, "<Gather") {
		t.Fatalf("expected follow-up gather, got:\n%s", out)
	}
}

func TestRenderReplyTextFallbackAndGoodbye(t *testing.T) {
	out, err := testRenderer().RenderReply("lo siento", "", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(out, "lo siento") {
		t.Fatalf("expected Say fallback, got:\n%s", out)
	}
	if strings.Contains(out, "<Gather") {
		t.Fatalf("expected no gather when ending the conversation, got:\n%s", out)
	}
	if !strings.Contains(out, "<Hangup") {
		t.Fatalf("expected hangup, got:\n%s", out)
	}
}

func TestRenderHangup(t *testing.T) {
	out, err := testRenderer().RenderHangup("adiós")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "adiós") || !strings.Contains(out, "<Hangup") {
		t.Fatalf("expected goodbye and hangup, got:\n%s", out)
	}

	out, err = testRenderer().RenderHangup("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(out, "<Say") {
		t.Fatalf("expected no say without a message, got:\n%s", out)
	}
}
