package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, dir, lang, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, lang+".json"), []byte(content), 0o600)
	require.NoError(t, err)
}

func TestLoadAndTranslate(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "ru", `{"welcome": "Привет, {user_name}!", "menu": "Меню"}`)
	writeCatalog(t, dir, "en", `{"welcome": "Hello, {user_name}!"}`)

	bundle, err := Load(dir, "ru")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ru", "en"}, bundle.Languages())

	tr := bundle.ForLanguage("ru")
	assert.Equal(t, "ru", tr.Lang())
	assert.Equal(t, "Привет, Иван!", tr.T("welcome", "user_name", "Иван"))

	// ключ без плейсхолдеров
	assert.Equal(t, "Меню", tr.T("menu"))
}

func TestFallbacks(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "ru", `{"welcome": "Привет!", "only_ru": "Только по-русски"}`)
	writeCatalog(t, dir, "en", `{"welcome": "Hello!"}`)

	bundle, err := Load(dir, "ru")
	require.NoError(t, err)

	// неизвестный язык сводится к языку по умолчанию
	tr := bundle.ForLanguage("de")
	assert.Equal(t, "ru", tr.Lang())
	assert.Equal(t, "Привет!", tr.T("welcome"))

	// отсутствующий в en ключ берётся из запасного каталога
	en := bundle.ForLanguage("en")
	assert.Equal(t, "Только по-русски", en.T("only_ru"))

	// полностью неизвестный ключ возвращается как есть
	assert.Equal(t, "no_such_key", en.T("no_such_key"))
}

func TestLoadMissingDefault(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en", `{"welcome": "Hello!"}`)

	_, err := Load(dir, "ru")
	require.Error(t, err)
}
