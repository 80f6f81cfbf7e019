package similarity

import "strings"

// alias maps a fragment seen in the wild to a canonical service name.
// Order matters: when more than one alias would match by containment, the
// first entry wins, so more specific fragments belong earlier in the list.
type alias struct {
	fragment  string
	canonical string
}

var serviceAliases = []alias{
	{"netflix", "Netflix"},
	{"nflx", "Netflix"},
	{"spotify", "Spotify"},
	{"sptfy", "Spotify"},
	{"amazon prime", "Amazon Prime"},
	{"prime video", "Amazon Prime"},
	{"prime", "Amazon Prime"},
	{"amzn", "Amazon Prime"},
	{"disney+", "Disney+"},
	{"disney plus", "Disney+"},
	{"disneyplus", "Disney+"},
	{"youtube premium", "YouTube Premium"},
	{"youtube", "YouTube Premium"},
	{"yt premium", "YouTube Premium"},
	{"apple music", "Apple Music"},
	{"apple tv", "Apple TV+"},
	{"apple one", "Apple One"},
	{"icloud", "iCloud+"},
	{"hbo max", "Max"},
	{"hbomax", "Max"},
	{"hulu", "Hulu"},
	{"paramount+", "Paramount+"},
	{"paramount", "Paramount+"},
	{"audible", "Audible"},
	{"dropbox", "Dropbox"},
	{"github", "GitHub"},
	{"playstation", "PlayStation Plus"},
	{"ps plus", "PlayStation Plus"},
	{"xbox game pass", "Xbox Game Pass"},
	{"game pass", "Xbox Game Pass"},
	{"xbox", "Xbox Game Pass"},
	{"nintendo", "Nintendo Switch Online"},
	{"crunchyroll", "Crunchyroll"},
	{"adobe", "Adobe Creative Cloud"},
	{"office 365", "Microsoft 365"},
	{"microsoft 365", "Microsoft 365"},
	{"chatgpt", "ChatGPT Plus"},
	{"openai", "ChatGPT Plus"},
}

// NormalizeServiceName maps a raw service name to its canonical form.
// Lookup order: exact alias match, then substring containment in either
// direction, then a capitalized copy of the input as-is.
func NormalizeServiceName(name string) string {
	trimmed := strings.TrimSpace(name)
	lower := strings.ToLower(trimmed)
	if lower == "" {
		return trimmed
	}

	for _, a := range serviceAliases {
		if a.fragment == lower {
			return a.canonical
		}
	}

	for _, a := range serviceAliases {
		if strings.Contains(lower, a.fragment) || strings.Contains(a.fragment, lower) {
			return a.canonical
		}
	}

	return capitalize(trimmed)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
