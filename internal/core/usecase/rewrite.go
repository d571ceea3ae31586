package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"hrkb/internal/core/domain"
	"hrkb/internal/core/ports"
)

// standaloneQuery turns the caller's query into a retrieval-ready form.
// Synonyms are normalized first; when conversation history exists the LLM
// resolves references into a standalone query. A failed or useless rewrite
// falls back to the normalized query and flags the degradation.
func standaloneQuery(
	ctx context.Context,
	completion ports.CompletionService,
	normalizer ports.QueryNormalizer,
	query string,
	turns []domain.ConversationTurn,
) (string, bool) {
	normalized := normalizer.Normalize(query)
	if len(turns) == 0 {
		return normalized, false
	}

	rewritten, err := completion.Complete(ctx, buildRewritePrompt(normalized, turns))
	if err != nil {
		return normalized, true
	}
	rewritten = strings.TrimSpace(rewritten)
	if utf8.RuneCountInString(rewritten) < 2 {
		return normalized, true
	}
	return rewritten, false
}

// buildRewritePrompt asks the model for a standalone retrieval query.
// Conversation turns are rendered oldest first.
func buildRewritePrompt(query string, turns []domain.ConversationTurn) string {
	var history strings.Builder
	for _, turn := range turns {
		label := "用户"
		if turn.Role == domain.RoleAssistant {
			label = "助手"
		}
		history.WriteString(fmt.Sprintf("%s：%s\n", label, turn.Content))
	}

	return fmt.Sprintf(`你是一个专业的查询优化助手。请结合对话历史，将用户的最新查询重新表述为独立、适合检索的形式。

要求：
1. 补全对话中省略的主语和指代
2. 提取查询的核心关键词
3. 使用更专业的人事领域术语
4. 保持查询简洁，不要添加无关内容
5. 只输出重述后的查询文本，不要解释

对话历史：
%s
最新查询：%s

重述后的查询：`, history.String(), query)
}
