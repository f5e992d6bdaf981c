// Package sanitize приводит поля профиля Telegram к безопасному для
// хранения и отображения виду: убирает управляющие и невидимые символы,
// ограничивает длину. Сравнение «изменилось ли поле» в бизнес-логике
// выполняется по уже санитизированным значениям.
package sanitize

import (
	"strings"
	"unicode"
)

const (
	maxUsernameLen    = 32
	maxDisplayNameLen = 64
)

// Username нормализует username: отбрасывает ведущий @, оставляет только
// символы [A-Za-z0-9_] и ограничивает длину.
func Username(raw string) string {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	var b strings.Builder
	for _, r := range s {
		if r == '_' || (r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return truncate(b.String(), maxUsernameLen)
}

// DisplayName очищает имя или фамилию: удаляет управляющие символы
// и символы нулевой ширины, схлопывает пробелы по краям, ограничивает длину.
func DisplayName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsControl(r) || isZeroWidth(r) {
			continue
		}
		b.WriteRune(r)
	}
	return truncate(strings.TrimSpace(b.String()), maxDisplayNameLen)
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
