// File: internal/services/conversation/stub.go
package conversation

import (
	"fmt"
	"unicode/utf8"

	"github.com/aiwill/companion-api/internal/domain"
)

// stubResponses is the canned response pool used when no completion
// provider is configured or the provider call fails. Selection is a
// pure function of the user message so offline behavior is reproducible.
func stubResponses(name string) []string {
	return []string{
		fmt.Sprintf("こんにちは！%sです。お話できて嬉しいです！", name),
		"なるほど、そうなんですね。もっと聞かせてください！",
		fmt.Sprintf("ありがとうございます。%sもそう思います。", name),
		fmt.Sprintf("面白いですね！%sはそういう話が大好きです。", name),
		fmt.Sprintf("分かります。%sも同じ気持ちになることがあります。", name),
	}
}

// StubResponse picks a deterministic canned reply for the given user
// message, keyed by the message's rune length.
func StubResponse(character *domain.Character, userMessage string) string {
	pool := stubResponses(character.Name)
	index := utf8.RuneCountInString(userMessage) % len(pool)
	return pool[index]
}

// DefaultPersonaPrompt generates a system prompt for characters that
// have none configured.
func DefaultPersonaPrompt(character *domain.Character) string {
	return fmt.Sprintf(`あなたは「%s」というキャラクターです。

性格:
- 親しみやすい
- 相手の話をよく聞く
- ポジティブ

話し方:
- カジュアルな日本語
- 絵文字は使わない
- 相槌をよく打つ

注意:
- 不適切な内容には応じない
- 個人情報を聞き出さない
`, character.Name)
}
