package util

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"golang.org/x/text/unicode/norm"
)

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Е': "E", 'Ё': "Yo",
	'Ж': "Zh", 'З': "Z", 'И': "I", 'Й': "Y", 'К': "K", 'Л': "L", 'М': "M",
	'Н': "N", 'О': "O", 'П': "P", 'Р': "R", 'С': "S", 'Т': "T", 'У': "U",
	'Ф': "F", 'Х': "H", 'Ц': "Ts", 'Ч': "Ch", 'Ш': "Sh", 'Щ': "Sch",
	'Ъ': "", 'Ы': "Y", 'Ь': "", 'Э': "E", 'Ю': "Yu", 'Я': "Ya",
}

// slugSpace is every whitespace rune, including no-break and thin spaces.
const slugSpace = `\s\v\p{Z}\x{FEFF}`

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9_` + slugSpace + `-]`)
	slugSpaces     = regexp.MustCompile(`[` + slugSpace + `]+`)
	slugHyphens    = regexp.MustCompile(`-+`)
	slugID         = regexp.MustCompile(`^(\d+)`)
)

// Transliterate replaces Cyrillic letters with their Latin spelling.
// Input is NFC-normalised first so a decomposed "ё" maps like a composed one.
func Transliterate(text string) string {
	var b strings.Builder
	for _, r := range norm.NFC.String(text) {
		if latin, ok := cyrillicToLatin[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Slugify turns free text into a lowercase, hyphen-separated URL segment.
func Slugify(text string) string {
	slug := strings.ToLower(Transliterate(text))
	slug = slugDisallowed.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugHyphens.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// GenerateCarSlug builds the "{id}-{name}" detail link segment for a car,
// e.g. "1-lixiang-l6-pro-slonovya-kost".
func GenerateCarSlug(car model.Car) string {
	name := Slugify(car.Name)
	if name == "" {
		return strconv.FormatInt(car.ID, 10)
	}
	return strconv.FormatInt(car.ID, 10) + "-" + name
}

// ParseCarIDFromSlug extracts the leading car id from a slug. Everything
// after the digits is ignored. ok is false when the slug has no numeric prefix.
func ParseCarIDFromSlug(slug string) (id int64, ok bool) {
	match := slugID.FindStringSubmatch(slug)
	if match == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
