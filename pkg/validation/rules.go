package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/goliatone/go-iform/pkg/schema"
)

// MaxPatternInput bounds the runes a pattern rule will try to match.
const MaxPatternInput = 1000

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

	patternCache sync.Map
)

// env carries what sync rules need besides the value.
type env struct {
	field      schema.Field
	now        func() time.Time
	predicates *predicates
}

type check func(rule schema.ValidationRule, value any, e env) bool

// checks covers every synchronous rule. unique is handled by the async pass.
var checks = map[schema.RuleKind]check{
	schema.RuleRequired:   checkRequired,
	schema.RuleMinLength:  checkMinLength,
	schema.RuleMaxLength:  checkMaxLength,
	schema.RuleMinValue:   checkMinValue,
	schema.RuleMaxValue:   checkMaxValue,
	schema.RulePattern:    checkPattern,
	schema.RuleEmail:      func(_ schema.ValidationRule, v any, _ env) bool { return emailPattern.MatchString(text(v)) },
	schema.RulePhone:      func(_ schema.ValidationRule, v any, _ env) bool { return phonePattern.MatchString(phoneStrip.Replace(text(v))) },
	schema.RuleIBAN:       func(_ schema.ValidationRule, v any, _ env) bool { return ValidIBAN(text(v)) },
	schema.RuleNationalID: checkNationalID,
	schema.RuleDateRange:  checkDateRange,
	schema.RuleCustom:     checkCustom,
}

// IsEmpty reports whether value counts as not filled in.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return len(v) == 0
	case time.Time:
		return v.IsZero()
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func text(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func runeCount(value any) int {
	return utf8.RuneCountInString(norm.NFC.String(text(value)))
}

func checkRequired(_ schema.ValidationRule, value any, e env) bool {
	if e.field.WidgetType == schema.WidgetCheckbox {
		b, ok := value.(bool)
		return ok && b
	}
	return !IsEmpty(value)
}

func checkMinLength(rule schema.ValidationRule, value any, _ env) bool {
	n, ok := schema.Number(rule.Value)
	return !ok || float64(runeCount(value)) >= n
}

func checkMaxLength(rule schema.ValidationRule, value any, _ env) bool {
	n, ok := schema.Number(rule.Value)
	return !ok || float64(runeCount(value)) <= n
}

func number(value any) (float64, bool) {
	if n, ok := schema.Number(value); ok {
		return n, true
	}
	if s, ok := value.(string); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return n, err == nil
	}
	return 0, false
}

func checkMinValue(rule schema.ValidationRule, value any, _ env) bool {
	bound, ok := schema.Number(rule.Value)
	if !ok {
		return true
	}
	n, ok := number(value)
	return ok && n >= bound
}

func checkMaxValue(rule schema.ValidationRule, value any, _ env) bool {
	bound, ok := schema.Number(rule.Value)
	if !ok {
		return true
	}
	n, ok := number(value)
	return ok && n <= bound
}

func compiled(expr string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	actual, _ := patternCache.LoadOrStore(expr, re)
	return actual.(*regexp.Regexp), nil
}

func checkPattern(rule schema.ValidationRule, value any, _ env) bool {
	expr, _ := rule.Value.(string)
	re, err := compiled(expr)
	if err != nil {
		return false
	}
	s := text(value)
	if utf8.RuneCountInString(s) > MaxPatternInput {
		return false
	}
	return re.MatchString(s)
}

func checkNationalID(rule schema.ValidationRule, value any, _ env) bool {
	length, prefixed := 10, true
	if n, ok := schema.Number(rule.Value); ok && n > 0 && n == float64(int(n)) {
		length, prefixed = int(n), false
	}
	return ValidNationalID(text(value), length, prefixed)
}

const dateLayout = "2006-01-02"

func parseDate(value any, now func() time.Time) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return truncateDay(v), true
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, "today") {
			return truncateDay(now()), true
		}
		for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return truncateDay(t), true
			}
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func checkDateRange(rule schema.ValidationRule, value any, e env) bool {
	date, ok := parseDate(value, e.now)
	if !ok {
		return false
	}
	bounds := map[string]any{}
	switch b := rule.Value.(type) {
	case map[string]any:
		bounds = b
	case map[string]string:
		for k, v := range b {
			bounds[k] = v
		}
	}
	if lo, ok := parseDate(bounds["min"], e.now); ok && date.Before(lo) {
		return false
	}
	if hi, ok := parseDate(bounds["max"], e.now); ok && date.After(hi) {
		return false
	}
	return true
}

func checkCustom(rule schema.ValidationRule, value any, e env) bool {
	name, _ := rule.Value.(string)
	fn, ok := e.predicates.get(name)
	if !ok {
		return false
	}
	return fn(e.field, value)
}
