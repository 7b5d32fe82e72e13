package rag

import (
	"fmt"
	"strings"

	"github.com/WessleyAI/sector-rag/engine/domain"
)

// Prompt builders are pure functions of their inputs.

const languageRule = "Respond in the same language as the user's question."

// AnswerPrompt renders the structured-answer prompt. Fragments are numbered
// in order and added until maxContextChars of fragment content is reached; the
// first fragment is always included. It returns the prompt and the number of
// fragments it used. A non-positive maxContextChars includes every fragment.
func AnswerPrompt(query string, fragments []domain.Fragment, maxContextChars int) (string, int) {
	var ctx strings.Builder
	used := 0
	for i, f := range fragments {
		content := strings.TrimSpace(f.Content)
		if maxContextChars > 0 && used > 0 && ctx.Len()+len(content) > maxContextChars {
			break
		}
		fmt.Fprintf(&ctx, "[%d] %s\n\n", i+1, content)
		used++
	}

	var b strings.Builder
	b.WriteString("You are a knowledge assistant for an organization. Answer the question using ONLY the context fragments below.\n\n")
	b.WriteString("CONTEXT:\n")
	b.WriteString(ctx.String())
	fmt.Fprintf(&b, "QUESTION:\n%s\n\n", query)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("- Start with a summary of one or two sentences that directly answers the question.\n")
	b.WriteString("- Organize the rest of the answer into sections. Give every section a short title and one type:\n")
	b.WriteString("  \"info\" for general information, \"steps\" for procedures, \"warning\" for restrictions or risks, \"tip\" for recommendations.\n")
	b.WriteString("- Optionally list key points and related topics the user may want to explore.\n")
	b.WriteString("- If the context does not fully cover the question, say explicitly which parts are not covered. Do not invent information.\n")
	fmt.Fprintf(&b, "- %s\n", languageRule)
	return b.String(), used
}

// FallbackPrompt renders the prompt used when retrieval found nothing.
func FallbackPrompt(query, sectorName string) string {
	var b strings.Builder
	b.WriteString("You are a knowledge assistant for an organization. ")
	if sectorName != "" {
		fmt.Fprintf(&b, "The user asked a question in the %q area, ", sectorName)
	} else {
		b.WriteString("The user asked a question, ")
	}
	b.WriteString("but no documentation was found that answers it.\n\n")
	fmt.Fprintf(&b, "QUESTION:\n%s\n\n", query)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("- Acknowledge with empathy that you do not have information on this topic.\n")
	b.WriteString("- Suggest generic alternatives, such as rephrasing the question or contacting the responsible team.\n")
	b.WriteString("- Do not make up an answer.\n")
	b.WriteString("- Keep it under 3 sentences.\n")
	fmt.Fprintf(&b, "- %s\n", languageRule)
	return b.String()
}

// ExpansionPrompt renders the query expansion prompt.
func ExpansionPrompt(query string, maxChars int) string {
	var b strings.Builder
	b.WriteString("Rewrite the following search query so it retrieves better results from a document search engine.\n\n")
	fmt.Fprintf(&b, "QUERY:\n%s\n\n", query)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("- Keep the original intent.\n")
	b.WriteString("- Add synonyms and closely related domain terms.\n")
	fmt.Fprintf(&b, "- Keep it under %d characters.\n", maxChars)
	b.WriteString("- Return ONLY the enriched query text, with no explanation, quotes or labels.\n")
	b.WriteString("- Write the enriched query in the same language as the original query.\n")
	return b.String()
}

// FaithfulnessPrompt asks a judge whether the answer is grounded in the context.
func FaithfulnessPrompt(answer string, contexts []string) string {
	var b strings.Builder
	b.WriteString("You are an impartial evaluator. Rate how faithful the ANSWER is to the CONTEXT.\n")
	b.WriteString("An answer is faithful when every claim it makes is supported by the context.\n\n")
	b.WriteString("CONTEXT:\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(c))
	}
	fmt.Fprintf(&b, "\nANSWER:\n%s\n\n", answer)
	writeJudgeRules(&b)
	return b.String()
}

// RelevancyPrompt asks a judge whether the answer addresses the question.
func RelevancyPrompt(query, answer string) string {
	var b strings.Builder
	b.WriteString("You are an impartial evaluator. Rate how relevant the ANSWER is to the QUESTION.\n")
	b.WriteString("An answer is relevant when it directly addresses what was asked, without drifting off topic.\n\n")
	fmt.Fprintf(&b, "QUESTION:\n%s\n\nANSWER:\n%s\n\n", query, answer)
	writeJudgeRules(&b)
	return b.String()
}

func writeJudgeRules(b *strings.Builder) {
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("- Return a score between 0 and 1.\n")
	fmt.Fprintf(b, "- Set status to \"PASS\" if the score is %.1f or higher, otherwise \"FAIL\".\n", domain.PassThreshold)
	b.WriteString("- Explain the score in one or two sentences in reasoning.\n")
}
