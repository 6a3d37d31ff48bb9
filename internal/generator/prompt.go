package generator

import (
	"fmt"
	"strings"
)

// answerDelimiter separates the echoed prompt from the generated answer.
// Models that echo their input repeat the whole template, so extraction cuts
// at the LAST occurrence.
const answerDelimiter = "Answer:"

const promptTemplate = `You are a research assistant. Answer the question using only the provided context. Cite the sources you rely on by their titles.

Context:
%s
Question: %s

` + answerDelimiter

// BuildPrompt renders the grounded prompt with the context block verbatim.
func BuildPrompt(contextBlock, question string) string {
	return fmt.Sprintf(promptTemplate, contextBlock, question)
}

// Extraction is the outcome of answer post-processing. Found reports whether
// the delimiter was present; when it is not, Text carries the raw model
// output unmodified.
type Extraction struct {
	Found bool
	Text  string
}

// ExtractAnswer strips everything up to and including the last occurrence of
// the answer delimiter and trims the remainder. A missing delimiter is not
// an error: some models do not echo the prompt.
func ExtractAnswer(raw string) Extraction {
	i := strings.LastIndex(raw, answerDelimiter)
	if i < 0 {
		return Extraction{Found: false, Text: raw}
	}
	return Extraction{Found: true, Text: strings.TrimSpace(raw[i+len(answerDelimiter):])}
}

// TruncatePrompt cuts the prompt down until the counter reports at most
// maxTokens. With keepTail set the cut removes the start of the prompt,
// retaining the most recent content; otherwise the end is dropped. Counting
// is the model tokenizer's business, so the cut point is found by binary
// search over rune boundaries rather than assumed from character math.
func TruncatePrompt(prompt string, maxTokens int, count func(string) int, keepTail bool) string {
	if maxTokens <= 0 || count(prompt) <= maxTokens {
		return prompt
	}
	runes := []rune(prompt)
	keep := func(n int) string {
		if keepTail {
			return string(runes[len(runes)-n:])
		}
		return string(runes[:n])
	}
	// Largest n (runes kept) that still fits the budget.
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if count(keep(mid)) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return keep(lo)
}
