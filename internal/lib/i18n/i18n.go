// Package i18n реализует каталог локализованных строк бота.
// Каталоги загружаются один раз при старте из JSON-файлов вида <lang>.json
// (плоская карта ключ → строка). Для каждого события создаётся явное
// значение Translator под язык пользователя — никакого глобального
// каталога в точках вызова.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Bundle хранит каталоги всех поддерживаемых языков.
type Bundle struct {
	catalogs    map[string]map[string]string
	defaultLang string
}

// Load читает все файлы *.json из каталога dir. Имя файла без расширения
// используется как код языка. Язык defaultLang обязан присутствовать —
// он служит запасным при отсутствии ключа или языка.
func Load(dir, defaultLang string) (*Bundle, error) {
	const op = "i18n.Load"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	catalogs := make(map[string]map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".json")

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		var catalog map[string]string
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, entry.Name(), err)
		}
		catalogs[lang] = catalog
	}

	if _, ok := catalogs[defaultLang]; !ok {
		return nil, fmt.Errorf("%s: catalog for default language %q not found in %s", op, defaultLang, dir)
	}

	return &Bundle{catalogs: catalogs, defaultLang: defaultLang}, nil
}

// Languages возвращает коды всех загруженных языков
// в алфавитном порядке.
func (b *Bundle) Languages() []string {
	langs := make([]string, 0, len(b.catalogs))
	for lang := range b.catalogs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// ForLanguage возвращает Translator для указанного языка.
// Неизвестный язык прозрачно сводится к языку по умолчанию.
func (b *Bundle) ForLanguage(lang string) Translator {
	catalog, ok := b.catalogs[lang]
	if !ok {
		lang = b.defaultLang
		catalog = b.catalogs[b.defaultLang]
	}
	return Translator{
		lang:     lang,
		catalog:  catalog,
		fallback: b.catalogs[b.defaultLang],
	}
}

// Translator переводит ключи каталога для одного языка.
// Значение неизменяемо и передаётся по цепочке вызовов одного события.
type Translator struct {
	lang     string
	catalog  map[string]string
	fallback map[string]string
}

// Lang возвращает код языка переводчика.
func (t Translator) Lang() string {
	return t.lang
}

// T возвращает перевод ключа с подстановкой плейсхолдеров вида {name}.
// Аргументы передаются парами имя, значение. Если ключа нет ни в каталоге,
// ни в запасном языке, возвращается сам ключ.
func (t Translator) T(key string, args ...string) string {
	text, ok := t.catalog[key]
	if !ok {
		text, ok = t.fallback[key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}

	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+args[i]+"}", args[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
