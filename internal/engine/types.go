package engine

import "errors"

// ErrUnavailable marks any transport, status or parse failure from the
// engine. Callers substitute FallbackReply and keep the conversation alive.
var ErrUnavailable = errors.New("engine unavailable")

// FallbackReply is the calm, brand-safe reply used when the engine fails.
const FallbackReply = "Desculpe, vamos com calma. Pode repetir o que você precisa?"

// Turn is one entry of the alternating history. Role is "user" or "model".
type Turn struct {
	Role    string
	Content string
}

// Media is one binary attachment delivered natively with the prompt.
type Media struct {
	MimeType   string
	StorageRef string
}
