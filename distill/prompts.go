package distill

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poiesic/distillery/core"
)

const extractionSchema = `{
  "type": "object",
  "properties": {
    "thread_summary": {"type": "string"},
    "user_learning": {"type": "string"},
    "tool_learning": {"type": "string"},
    "data_learning": {"type": "string"}
  },
  "required": ["thread_summary", "user_learning", "tool_learning", "data_learning"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `You review conversations between a user and an assistant bot and record what was learned.

Output ONLY valid JSON which complies with the schema below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Fields:
- thread_summary: a short summary of what the conversation was about and how it ended.
- user_learning: what was learned about the user, their role, goals and preferences.
- tool_learning: what was learned about using the bot's tools, including failures and workarounds.
- data_learning: what was learned about the data, tables, metrics and their meaning.

Rules:
- Use an empty string for any field with nothing new to record.
- Only record what the conversation states or clearly implies. Do not invent.
- If earlier parts of this conversation were already summarized, record only what is new.`

const refinePromptTemplate = `You maintain a bullet point summary of %s for one user of an assistant bot.

Merge the existing summary with the new observations into one updated summary.

Rules:
- Output only bullet points, one per line, each starting with "- ".
- Keep every existing point that the new observations do not contradict.
- When a new observation contradicts an existing point, keep the new one.
- Merge duplicates. Do not invent anything.
- No preamble, headings or closing remarks.

Existing summary:
%s

New observations:
%s`

var extractionPrompt = fmt.Sprintf(extractionPromptTemplate, extractionSchema)

// facetTopics names what each learnable facet is about.
var facetTopics = map[string]string{
	"user_learning": "what is known about the user",
	"tool_learning": "what is known about using the bot's tools",
	"data_learning": "what is known about the data the bot works with",
}

func buildRefinePrompt(facet, prior, observed string) string {
	if strings.TrimSpace(prior) == "" {
		prior = "(none)"
	}
	return fmt.Sprintf(refinePromptTemplate, facetTopics[facet], prior, observed)
}

// buildTranscript renders messages one per line, stopping before the first
// line that would take it past budget characters. It also returns how many
// messages the transcript covers. A first message longer than the budget is
// cut to fit.
func buildTranscript(msgs []*core.Message, budget int) (string, int) {
	var b strings.Builder
	used := 0
	for i, m := range msgs {
		line := transcriptLine(m)
		n := utf8.RuneCountInString(line)
		if used+n > budget {
			if i == 0 {
				return truncate(line, budget), 1
			}
			return b.String(), i
		}
		b.WriteString(line)
		used += n
	}
	return b.String(), len(msgs)
}

func transcriptLine(m *core.Message) string {
	return m.Timestamp.UTC().Format(time.RFC3339) + " " + speaker(m) + ": " + strings.TrimSpace(m.Payload) + "\n"
}

func speaker(m *core.Message) string {
	switch m.Type {
	case core.MessageTypeUser:
		if m.PrimaryUser != "" {
			return "user " + m.PrimaryUser
		}
		return "user"
	case core.MessageTypeBot:
		return "bot"
	case core.MessageTypeTool:
		return "tool"
	default:
		return m.Type.String()
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
