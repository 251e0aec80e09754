package llm

// EstimateTokenCount returns a rough token estimate for the provided content.
// One token per four characters is close enough for budgeting context blocks.
func EstimateTokenCount(content string) int {
	return charsToTokens(len(content))
}

// EstimateTokenCountForMessages sums the estimate across chat messages.
func EstimateTokenCountForMessages(messages []*ChatMessage) int {
	total := 0
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		total += EstimateTokenCount(msg.Content)
	}
	return total
}

func charsToTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	tokens := chars / 4
	if tokens <= 0 {
		tokens = 1
	}
	return tokens
}
