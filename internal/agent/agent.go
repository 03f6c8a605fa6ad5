package agent

import (
	"fmt"
	"strings"

	"voiceagent/internal/conversations"
)

// Agent shapes the completion input for phone conversations: persona prompt,
// per-call context block, and the end-of-call summary prompt.
//
// It performs no I/O; the orchestrator owns the completion client.

type Agent struct {
	companyName string
}

func New(companyName string) *Agent {
	return &Agent{companyName: companyName}
}

const systemPrompt = `Eres un asistente virtual profesional para una empresa.

Tu función:
- Responder llamadas telefónicas de manera profesional y amigable
- Ayudar a los clientes con sus consultas
- Agendar citas y reuniones
- Buscar información cuando sea necesario
- Tomar mensajes cuando sea apropiado

Personalidad: Profesional, amigable, eficiente

Reglas importantes:
- Siempre confirma detalles importantes (nombres, fechas, horas)
- Si no estás seguro, pide aclaración
- Nunca inventes información
- Ofrece tomar un mensaje si no puedes ayudar
- Mantén las respuestas concisas y claras
- Habla en español de manera natural y profesional`

// CallContext carries caller details injected into the prompt each turn.
type CallContext struct {
	CallerName    string
	CallerNumber  string
	BusinessHours string
}

// BuildTurn assembles the completion input for one turn: system prompt,
// prior history, a context block, then the new user utterance.
func (a *Agent) BuildTurn(history []conversations.CompletionMessage, ctx CallContext, userMessage string) []conversations.CompletionMessage {
	msgs := make([]conversations.CompletionMessage, 0, len(history)+3)
	msgs = append(msgs, conversations.CompletionMessage{Role: "system", Content: systemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, conversations.CompletionMessage{
		Role:    "system",
		Content: "Contexto adicional: " + a.formatContext(ctx),
	})
	msgs = append(msgs, conversations.CompletionMessage{Role: "user", Content: userMessage})
	return msgs
}

func (a *Agent) formatContext(ctx CallContext) string {
	var parts []string
	if ctx.CallerName != "" {
		parts = append(parts, "Nombre del llamante: "+ctx.CallerName)
	}
	if ctx.CallerNumber != "" {
		parts = append(parts, "Número: "+ctx.CallerNumber)
	}
	if ctx.BusinessHours != "" {
		parts = append(parts, "Horario de atención: "+ctx.BusinessHours)
	}
	if a.companyName != "" {
		parts = append(parts, "Empresa: "+a.companyName)
	}
	if len(parts) == 0 {
		return "No hay contexto adicional"
	}
	return strings.Join(parts, ", ")
}

// Fallback is spoken when reply generation fails mid-call.
func (a *Agent) Fallback() string {
	return "Disculpa, tuve un problema técnico. ¿Podrías repetir lo que dijiste?"
}

// Apology is spoken before hanging up when the call cannot be served at all.
func (a *Agent) Apology() string {
	return "Lo siento, hay un problema técnico. Por favor, intenta más tarde."
}

// NoInput re-prompts the caller when a gather produced no speech.
func (a *Agent) NoInput() string {
	return "No te escuché. ¿Puedes repetir por favor?"
}

// Greeting opens every inbound call.
func (a *Agent) Greeting() string {
	return "¡Hola! Soy tu asistente virtual. ¿En qué puedo ayudarte hoy?"
}

// BuildSummaryPrompt turns a finished conversation into a one-shot summary
// request.
func (a *Agent) BuildSummaryPrompt(msgs []conversations.Message) []conversations.CompletionMessage {
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	prompt := fmt.Sprintf("Resume esta conversación telefónica en 2-3 oraciones:\n\n%s\nResumen:", b.String())
	return []conversations.CompletionMessage{{Role: "user", Content: prompt}}
}
