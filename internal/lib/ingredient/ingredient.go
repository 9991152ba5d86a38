// Package ingredient приводит свободный текст строки ингредиента
// к канонической поисковой фразе для каталога товаров.
//
// Из строки вида "2 cups chicken breast, boneless and skinless"
// получается фраза "chicken breast": отбрасываются количество, единицы
// измерения, скобки, уточнения после запятой и хвостовые уточнения,
// введённые союзом "and"; результат приводится к нижнему регистру.
// Функция идемпотентна и никогда не возвращает пустую строку для
// непустого входа.
package ingredient

import (
	"regexp"
	"strings"
)

// units — ограниченный словарь единиц измерения и счётных слов,
// отбрасываемых в начале строки вместе с числом.
var units = map[string]struct{}{
	"cup": {}, "cups": {},
	"tablespoon": {}, "tablespoons": {}, "tbsp": {},
	"teaspoon": {}, "teaspoons": {}, "tsp": {},
	"pound": {}, "pounds": {}, "lb": {}, "lbs": {},
	"ounce": {}, "ounces": {}, "oz": {},
	"gram": {}, "grams": {}, "g": {}, "kg": {},
	"ml": {}, "l": {}, "liter": {}, "liters": {},
	"quart": {}, "quarts": {}, "pint": {}, "pints": {},
	"gallon": {}, "gallons": {},
	"clove": {}, "cloves": {},
	"can": {}, "cans": {},
	"slice": {}, "slices": {},
	"piece": {}, "pieces": {},
	"pinch": {}, "dash": {}, "handful": {},
	"bunch": {}, "bunches": {},
	"head": {}, "heads": {},
	"stick": {}, "sticks": {},
	"package": {}, "packages": {}, "pkg": {},
	"container": {}, "containers": {},
	"bag": {}, "bags": {},
	"box": {}, "boxes": {},
	"jar": {}, "jars": {},
	"bottle": {}, "bottles": {},
}

// fillers — служебные слова, отбрасываемые между числом и названием.
var fillers = map[string]struct{}{
	"of": {}, "a": {}, "an": {},
}

// descriptors — хвостовые уточнения вроде "boneless" или "minced",
// отбрасываемые в конце фразы вместе с вводящим их союзом "and".
// Союз между полноценными словами ("salt and pepper") не трогается.
var descriptors = map[string]struct{}{
	"boneless": {}, "skinless": {},
	"chopped": {}, "minced": {}, "diced": {}, "sliced": {},
	"peeled": {}, "grated": {}, "shredded": {}, "crushed": {},
	"cubed": {}, "halved": {}, "quartered": {},
	"seeded": {}, "pitted": {}, "cored": {}, "trimmed": {},
	"drained": {}, "rinsed": {}, "thawed": {},
	"melted": {}, "softened": {}, "beaten": {}, "crumbled": {},
	"toasted": {}, "divided": {}, "optional": {},
}

var (
	parenRe  = regexp.MustCompile(`\([^)]*\)`)
	numberRe = regexp.MustCompile(`^[0-9]+([./][0-9]+)?(-[0-9]+([./][0-9]+)?)?$`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// unicodeFractions — дробные символы, встречающиеся в выводе генерации.
const unicodeFractions = "¼½¾⅐⅑⅒⅓⅔⅕⅖⅗⅘⅙⅚⅛⅜⅝⅞"

// Normalize приводит строку ингредиента к канонической поисковой фразе.
// Для пустого после обрезки входа возвращается пустая строка; для любого
// непустого входа результат непуст: если отбрасывание съело всю строку,
// возвращается исходный текст в нижнем регистре со схлопнутыми пробелами.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	fallback := spaceRe.ReplaceAllString(strings.ToLower(trimmed), " ")

	s := strings.ToLower(trimmed)
	s = parenRe.ReplaceAllString(s, " ")

	// Уточнения после первой запятой не участвуют в поиске.
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[:idx]
	}

	fields := strings.Fields(s)
	i := 0
	for i < len(fields) {
		w := strings.Trim(fields[i], ".")
		if numberRe.MatchString(w) || isFraction(w) || hasUnit(w) || isFiller(w) {
			i++
			continue
		}
		break
	}
	fields = trimTrailingDescriptors(fields[i:])

	result := strings.Join(fields, " ")
	result = strings.Trim(result, " -")
	if result == "" {
		return fallback
	}
	return result
}

// NormalizeAll нормализует список строк, пропуская пустые после обрезки.
func NormalizeAll(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if term := Normalize(line); term != "" {
			out = append(out, term)
		}
	}
	return out
}

// trimTrailingDescriptors отбрасывает уточнения в конце фразы. Союз "and"
// отбрасывается только если хвост после него уже отброшен, так что фразы
// вида "salt and pepper" остаются целыми.
func trimTrailingDescriptors(fields []string) []string {
	end := len(fields)
	for end > 0 {
		w := strings.Trim(fields[end-1], ".")
		if isDescriptor(w) {
			end--
			continue
		}
		if w == "and" && end < len(fields) {
			end--
			continue
		}
		break
	}
	return fields[:end]
}

func hasUnit(w string) bool {
	_, ok := units[w]
	return ok
}

func isFiller(w string) bool {
	_, ok := fillers[w]
	return ok
}

func isDescriptor(w string) bool {
	_, ok := descriptors[w]
	return ok
}

func isFraction(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !strings.ContainsRune(unicodeFractions, r) {
			return false
		}
	}
	return true
}
