package workflow

import (
	"fmt"
	"strings"

	"github.com/dshills/postgraph/graph/model"
)

const entrySystemPrompt = "You're a smart social content agent.\n" +
	"- If the user input is a URL, use the `tavily_search` tool with the URL to extract article content.\n" +
	"- If the input is a topic, decide if web search would help before generating a post.\n" +
	"- If confident, you may generate a post without tool use."

// imageQueryRunes bounds the draft prefix used as an image search query.
const imageQueryRunes = 400

func entryTurn(source string) string {
	return "Input: " + source
}

// draftSource is the material a first draft is written from: every tool
// result, else the latest assistant reply.
func draftSource(messages []model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role == model.RoleTool {
			b.WriteString(m.Content)
		}
	}
	if b.Len() > 0 {
		return b.String()
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleAssistant {
			return messages[i].Content
		}
	}
	return ""
}

func draftPrompt(platform Platform, content, topic string) string {
	prompt := fmt.Sprintf("Use the following content to write a professional post for %s:\n\n%s", platform, content)
	if topic != "" {
		prompt += "\n\nWrite according to this query: " + topic
	}
	return prompt
}

func imageQuery(draft string) string {
	r := []rune(draft)
	if len(r) > imageQueryRunes {
		r = r[:imageQueryRunes]
	}
	return string(r)
}
