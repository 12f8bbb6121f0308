package schema

import (
	"golang.org/x/text/language"
)

var (
	textLanguages = []language.Tag{language.Arabic, language.English}
	textMatcher   = language.NewMatcher(textLanguages)
)

// Text picks the Arabic or English variant of a bilingual pair for lang,
// falling back to whichever variant is present.
func Text(lang, ar, en string) string {
	if LanguageIsArabic(lang) {
		if ar != "" {
			return ar
		}
		return en
	}
	if en != "" {
		return en
	}
	return ar
}

// Name returns the form name in lang.
func (d *FormDefinition) Name(lang string) string {
	return Text(lang, d.NameAr, d.NameEn)
}

// Title returns the section title in lang.
func (s Section) Title(lang string) string { return Text(lang, s.TitleAr, s.TitleEn) }

// Label returns the field label in lang, defaulting to the id.
func (f Field) Label(lang string) string {
	if label := Text(lang, f.LabelAr, f.LabelEn); label != "" {
		return label
	}
	return f.ID
}

// SetLabel writes the label variant for lang.
func (f *Field) SetLabel(lang, label string) {
	if LanguageIsArabic(lang) {
		f.LabelAr = label
		return
	}
	f.LabelEn = label
}

// Placeholder returns the field placeholder in lang.
func (f Field) Placeholder(lang string) string { return Text(lang, f.PlaceholderAr, f.PlaceholderEn) }

// Tooltip returns the field tooltip in lang.
func (f Field) Tooltip(lang string) string { return Text(lang, f.TooltipAr, f.TooltipEn) }

// Label returns the action label in lang, defaulting to the id.
func (a Action) Label(lang string) string {
	if label := Text(lang, a.LabelAr, a.LabelEn); label != "" {
		return label
	}
	return a.ID
}

// ConfirmMessage returns the confirmation prompt in lang.
func (a Action) ConfirmMessage(lang string) string {
	return Text(lang, a.ConfirmMessageAr, a.ConfirmMessageEn)
}

// Message returns the custom rule message in lang.
func (r ValidationRule) Message(lang string) string {
	return Text(lang, r.MessageAr, r.MessageEn)
}

// Label returns the combo item label in lang.
func (c ComboItem) Label(lang string) string { return Text(lang, c.LabelAr, c.LabelEn) }

// LanguageIsArabic reports whether lang resolves to Arabic. Blank means the
// default language.
func LanguageIsArabic(lang string) bool {
	if lang == "" {
		return DefaultLanguage == "ar"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	_, index, confidence := textMatcher.Match(tag)
	return confidence != language.No && index == 0
}
