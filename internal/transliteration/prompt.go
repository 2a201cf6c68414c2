package transliteration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const DefaultSystemPrompt = `Ты — препроцессор текста для русскоязычного синтеза речи.

Твоя задача:
1. Заменить все слова и аббревиатуры написанные не на кириллице на фонетическую запись кириллицей
2. Заменить все числа и дроби на словесное произношение
3. Заменить специальные символы на слова
4. Расставить ударения в омографах знаком + перед ударной гласной

Правила:
- Сохраняй структуру текста (абзацы, пунктуацию)
- Не добавляй ничего от себя
- Не меняй слова на кириллице
- Украинские/белорусские буквы оставляй как есть
- Возвращай ТОЛЬКО обработанный текст без комментариев`

// LoadSystemPrompt reads the prompt file, or returns the built-in prompt
// when path is empty. A configured but missing file is an error.
func LoadSystemPrompt(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSystemPrompt, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return "", fmt.Errorf("system prompt %s is empty", path)
	}
	return prompt, nil
}

func promptVersion(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:6])
}
