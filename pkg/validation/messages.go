package validation

import (
	"fmt"

	"github.com/goliatone/go-iform/pkg/schema"
)

type message struct{ ar, en string }

// defaultMessages apply when a rule carries no message of its own. A %v verb
// receives the rule value.
var defaultMessages = map[schema.RuleKind]message{
	schema.RuleRequired:   {"هذا الحقل مطلوب", "This field is required"},
	schema.RuleMinLength:  {"يجب ألا يقل الطول عن %v حرف", "Must be at least %v characters"},
	schema.RuleMaxLength:  {"يجب ألا يزيد الطول عن %v حرف", "Must be at most %v characters"},
	schema.RuleMinValue:   {"يجب ألا تقل القيمة عن %v", "Must be at least %v"},
	schema.RuleMaxValue:   {"يجب ألا تزيد القيمة عن %v", "Must be at most %v"},
	schema.RulePattern:    {"الصيغة غير صحيحة", "Invalid format"},
	schema.RuleEmail:      {"البريد الإلكتروني غير صحيح", "Invalid email address"},
	schema.RulePhone:      {"رقم الهاتف غير صحيح", "Invalid phone number"},
	schema.RuleIBAN:       {"رقم الآيبان غير صحيح", "Invalid IBAN"},
	schema.RuleNationalID: {"رقم الهوية غير صحيح", "Invalid national id"},
	schema.RuleDateRange:  {"التاريخ خارج النطاق المسموح", "Date is outside the allowed range"},
	schema.RuleUnique:     {"هذه القيمة مستخدمة مسبقاً", "This value is already in use"},
	schema.RuleCustom:     {"القيمة غير مقبولة", "Value is not accepted"},
}

var unverifiable = message{"تعذر التحقق من تفرد القيمة", "Could not verify that the value is unique"}

func (m message) text(lang string) string {
	return schema.Text(lang, m.ar, m.en)
}

// messageFor returns the rule's own message or the localised default.
func messageFor(rule schema.ValidationRule, lang string) string {
	if msg := rule.Message(lang); msg != "" {
		return msg
	}
	def, ok := defaultMessages[rule.Rule]
	if !ok {
		return string(rule.Rule)
	}
	text := def.text(lang)
	switch rule.Rule {
	case schema.RuleMinLength, schema.RuleMaxLength, schema.RuleMinValue, schema.RuleMaxValue:
		if n, ok := schema.Number(rule.Value); ok {
			return fmt.Sprintf(text, n)
		}
	}
	return text
}
