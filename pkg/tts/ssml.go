package tts

import (
	"encoding/xml"
	"strings"
)

// BuildSSML wraps message in an SSML document spoken by voice. The message is
// XML-escaped; delivery is slightly faster than normal with a stronger
// expression style.
func BuildSSML(message, voice string) string {
	var b strings.Builder
	b.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="https://www.w3.org/2001/mstts" xml:lang="zh-CN">`)
	b.WriteString(`<voice name="`)
	xml.EscapeText(&b, []byte(voice))
	b.WriteString(`">`)
	b.WriteString(`<mstts:express-as styleDegree="1.5">`)
	b.WriteString(`<prosody volume="0%" rate="10%" pitch="0%">`)
	xml.EscapeText(&b, []byte(message))
	b.WriteString(`</prosody></mstts:express-as></voice></speak>`)
	return b.String()
}
