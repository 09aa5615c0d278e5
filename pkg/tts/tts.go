// Package tts bridges message text to a cloud speech service. It builds the
// SSML document, talks to Azure Cognitive Services, and provides the client
// used to reach the chatline TTS proxy.
package tts

// ContentTypeMPEG is the content type of synthesized audio.
const ContentTypeMPEG = "audio/mpeg"

// Request is the body accepted by the proxy's synthesis endpoint.
type Request struct {
	Message string `json:"message"`
	Voice   string `json:"voice"`
}
