// Package refcode генерирует реферальные коды пользователей.
// Код — 9 символов из алфавита [A-Za-z0-9]; в глубоких ссылках он может
// передаваться с необязательным префиксом u/U, который при разборе отбрасывается.
package refcode

import (
	"crypto/rand"
	"fmt"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Length — длина реферального кода без префикса.
	Length = 9
)

// Generate возвращает новый случайный реферальный код.
func Generate() (string, error) {
	const op = "refcode.Generate"

	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
