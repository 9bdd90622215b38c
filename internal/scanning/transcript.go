package scanning

import "strings"

// transcribePrompt is the shared prompt used by all LLM recognizers
const transcribePrompt = `You are reading a photo or scan of a bill, invoice, delivery note or receipt. Transcribe every piece of printed text exactly as it appears.

Rules:
- Keep each printed line on its own line, top to bottom
- Keep table rows on one line with the columns in their printed order, separated by two spaces
- Copy product codes, quantities and prices character for character
- Do not translate, correct, summarise, or add anything
- Do not describe the image
- Output only the transcribed text, without markdown code blocks`

// cleanTranscript strips the markdown fences some models wrap around
// their answer despite the prompt.
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	// Drop the opening fence line, including any language tag
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
