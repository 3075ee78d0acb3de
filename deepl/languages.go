package deepl

import "strings"

// SourceCode maps a catalog language (de, en, fr, it) to a DeepL source code.
func SourceCode(lang string) string {
	return strings.ToUpper(lang)
}

// TargetCode maps a catalog language to a DeepL target code. English
// targets need a regional variant.
func TargetCode(lang string) string {
	if strings.EqualFold(lang, "en") {
		return "EN-US"
	}
	return strings.ToUpper(lang)
}
