package telephony

import (
	"github.com/twilio/twilio-go/twiml"
)

// Renderer builds the voice-markup responses the provider executes on the
// live call. Rendering is pure; the orchestrator decides which response a
// turn gets.

type Renderer struct {
	language     string
	gatherAction string
}

// NewRenderer configures rendering for one language (e.g. "es-ES") and the
// absolute gather callback URL speech results are posted to.
func NewRenderer(language, gatherAction string) *Renderer {
	return &Renderer{language: language, gatherAction: gatherAction}
}

func (r *Renderer) gather(inner ...twiml.Element) *twiml.VoiceGather {
	return &twiml.VoiceGather{
		Input:         "speech",
		Action:        r.gatherAction,
		Method:        "POST",
		SpeechTimeout: "auto",
		Language:      r.language,
		InnerElements: inner,
	}
}

func (r *Renderer) say(message string) *twiml.VoiceSay {
	return &twiml.VoiceSay{Message: message, Language: r.language}
}

// RenderGreeting speaks the greeting inside a speech gather, with a goodbye
// and hangup if the caller says nothing.
func (r *Renderer) RenderGreeting(greeting string) (string, error) {
	return twiml.Voice([]twiml.Element{
		r.gather(r.say(greeting)),
		r.say("No recibí ninguna respuesta. ¡Hasta luego!"),
		&twiml.VoiceHangup{},
	})
}

// RenderReply plays the synthesized audio when available, otherwise speaks
// the text. With continueConversation it opens another speech gather;
// otherwise it says goodbye and hangs up.
func (r *Renderer) RenderReply(message, audioURL string, continueConversation bool) (string, error) {
	var verbs []twiml.Element
	if audioURL != "" {
		verbs = append(verbs, &twiml.VoicePlay{Url: audioURL})
	} else {
		verbs = append(verbs, r.say(message))
	}
	if continueConversation {
		verbs = append(verbs, r.gather())
	} else {
		verbs = append(verbs, r.say("Gracias por llamar. ¡Hasta luego!"), &twiml.VoiceHangup{})
	}
	return twiml.Voice(verbs)
}

// RenderHangup optionally speaks a goodbye, then ends the call.
func (r *Renderer) RenderHangup(message string) (string, error) {
	var verbs []twiml.Element
	if message != "" {
		verbs = append(verbs, r.say(message))
	}
	verbs = append(verbs, &twiml.VoiceHangup{})
	return twiml.Voice(verbs)
}
