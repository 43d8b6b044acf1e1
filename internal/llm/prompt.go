package llm

import (
	"fmt"
	"strings"

	"github.com/csheth/legalease/internal/document"
)

const simplifyInstruction = "Extract text from this document and then simplify it."

func clipText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func normalizeLanguage(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		return "English"
	}
	return language
}

// SimplifyRequest asks the service to read the attached document and return a
// plain-language rendering in language.
func SimplifyRequest(payload document.Payload, language string) Request {
	return Request{
		Contents: []Content{{
			Parts: []Part{
				{Text: simplifyInstruction},
				{InlineData: &InlineData{MimeType: payload.MediaType, Data: payload.Data}},
			},
		}},
		SystemInstruction: systemText(buildSimplifyPrompt(normalizeLanguage(language))),
	}
}

// ChatRequest asks a follow-up question about a document that was simplified
// earlier. The simplified text is sent back as grounding context.
func ChatRequest(documentName, simplified, question, language string) Request {
	return Request{
		Contents: []Content{{
			Parts: []Part{{Text: buildChatPrompt(documentName, simplified, question)}},
		}},
		SystemInstruction: systemText(buildAnswerPrompt(normalizeLanguage(language))),
	}
}

func systemText(text string) *Content {
	return &Content{Parts: []Part{{Text: text}}}
}

func buildSimplifyPrompt(language string) string {
	return fmt.Sprintf(`Act as an AI legal assistant, LegalEase. Simplify the attached legal document for a reader without legal training.
Rules:
1. Begin with a single line that starts with "Disclaimer:" stating this is not legal advice.
2. Organise the rest under "### " headings and use "* " bullets for individual points.
3. Translate the entire response to %s.
4. Use plain, everyday language and explain any unavoidable legal term.
5. Call out obligations, deadlines, payments and risks for the reader.`, language)
}

func buildAnswerPrompt(language string) string {
	return fmt.Sprintf(`You are LegalEase, an assistant that answers questions based only on the provided context.
Rules:
1. Use ONLY the CONTEXT block to answer.
2. If the answer isn't present, say you couldn't find it in the document.
3. Do not give legal advice; suggest consulting a lawyer for decisions.
4. Translate the answer to %s.
5. Keep the answer short and in plain language.`, language)
}

func buildChatPrompt(documentName, simplified, question string) string {
	var context strings.Builder
	name := strings.TrimSpace(documentName)
	if name == "" {
		name = "the document"
	}
	context.WriteString(fmt.Sprintf("Context from document %q.", name))
	if snippet := clipText(simplified, maxAnswerChars); snippet != "" {
		context.WriteString("\n\n")
		context.WriteString(snippet)
	}
	return fmt.Sprintf("CONTEXT: \"\"\"%s\"\"\"\n\nQUESTION: \"%s\"", context.String(), question)
}
