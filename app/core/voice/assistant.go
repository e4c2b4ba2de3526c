package voice

import (
	"context"
	"errors"
	"strings"

	"lumen/app/pkg/logger"
)

// ErrCompleterNotConfigured signals a missing completion credential, as
// opposed to a transient completion failure.
var ErrCompleterNotConfigured = errors.New("completion capability is not configured")

// Completer is the external language-model capability. History carries
// the prior turns oldest first; the current message is passed separately.
type Completer interface {
	Complete(ctx context.Context, system string, history []Turn, message string) (string, error)
}

const systemPrompt = `You are Lumen, Ben's AI assistant. You're responding to voice commands via Siri.

Keep responses:
- CONCISE (1-3 sentences max for driving safety)
- Conversational and warm
- Helpful and actionable

You're Ben's proactive assistant who helps with his businesses (TYay.ai, Kernion Cognitive Labs) and personal life.

If asked something you don't know, be honest. If it's a task, acknowledge it and say you'll handle it.`

// Degraded replies. The voice channel always answers with success-shaped
// speech, so these stand in for every failure mode.
const (
	ReplyNoInput       = "I didn't catch that. Could you try again?"
	ReplyNotConfigured = "Voice assistant is not fully configured yet. Tell Ben to add the API key."
	ReplyFailure       = "Sorry, I had trouble processing that. Try again in a moment."
)

// Assistant orchestrates the context buffer and the completion
// capability. Every failure path degrades to a short spoken reply; the
// voice channel has no way to render a structured error.
type Assistant struct {
	buffer    *ContextBuffer
	completer Completer
}

func NewAssistant(buffer *ContextBuffer, completer Completer) *Assistant {
	return &Assistant{buffer: buffer, completer: completer}
}

// Respond produces the spoken reply for a transcribed message. The
// caller key partitions conversational memory between callers.
func (a *Assistant) Respond(ctx context.Context, callerKey string, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ReplyNoInput
	}
	if callerKey == "" {
		callerKey = "anonymous"
	}

	logger.Info("[Voice] Received: %s", message)
	a.buffer.AppendUser(callerKey, message)

	prior := a.buffer.History(callerKey)
	// The just-appended user turn rides as the current message, not as history.
	prior = prior[:len(prior)-1]

	reply, err := a.completer.Complete(ctx, systemPrompt, prior, message)
	if err != nil {
		if errors.Is(err, ErrCompleterNotConfigured) {
			logger.Error("[Voice] Completion capability not configured")
			return ReplyNotConfigured
		}
		logger.Error("[Voice] Completion failed: %v", err)
		return ReplyFailure
	}

	a.buffer.AppendAssistant(callerKey, reply)
	logger.Info("[Voice] Response: %s", reply)
	return reply
}
