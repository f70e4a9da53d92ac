package textfix

// wordSubstitutions maps commonly garbled OCR output to the intended word.
// Lookup is case-insensitive at the whole-word level and takes priority over
// fuzzy dictionary matching.
var wordSubstitutions = map[string]string{
	"teh": "the", "hte": "the", "adn": "and", "nad": "and",
	"thier": "their", "wich": "which", "taht": "that",
	"helo": "hello", "hdlo": "hello", "wrold": "world", "wolrd": "world",
	"recieve": "receive", "seperate": "separate", "occured": "occurred",
	"begining": "beginning", "neccessary": "necessary",
	"accomodate": "accommodate", "definately": "definitely",
	"embarass": "embarrass", "existance": "existence",
	"occassion": "occasion", "priviledge": "privilege",
	"sucess": "success", "tommorow": "tomorrow", "untill": "until",
	"wierd": "weird", "whereever": "wherever",
}

// glyphConfusions maps digits OCR engines mistake for letters. Applied only
// inside tokens that mix digits with letters, so plain numbers pass through.
var glyphConfusions = map[rune]rune{
	'0': 'o',
	'1': 'l',
	'5': 's',
	'8': 'b',
}

// commonWords is the reference dictionary for fuzzy repair. Order matters:
// ties between equally similar candidates resolve to the first entry, so the
// list is a slice, never a map.
var commonWords = []string{
	"the", "and", "is", "in", "to", "of", "a", "that", "it", "with",
	"he", "was", "for", "on", "are", "as", "you", "do", "at", "this",
	"but", "his", "by", "from", "they", "we", "say", "her", "she", "or",
	"an", "will", "my", "one", "all", "would", "there", "their", "what",
	"so", "up", "out", "if", "about", "who", "get", "which", "go", "me",
	"when", "make", "can", "like", "time", "no", "just", "him", "know",
	"take", "people", "into", "year", "your", "good", "some", "could",
	"them", "see", "other", "than", "then", "now", "look", "only",
	"come", "its", "over", "think", "also", "back", "after", "use",
	"two", "how", "our", "work", "first", "well", "way", "even", "new",
	"want", "because", "any", "these", "give", "day", "most", "us",
	"here", "should", "try", "tell", "call", "find", "ask", "need",
	"feel", "become", "leave", "put", "mean", "keep", "let", "begin",
	"seem", "help", "talk", "turn", "start", "might", "show", "part",
	"face", "own", "place", "where", "little", "round", "man", "came",
	"every", "under", "name", "very", "through", "form", "sentence",
	"great", "low", "line", "differ", "cause", "much", "before", "move",
	"right", "boy", "old", "too", "same", "does", "set", "three", "air",
	"play", "small", "end", "home", "read", "hand", "port", "large",
	"spell", "add", "land", "must", "big", "high", "such", "follow",
	"act", "why", "hello", "world", "word", "please", "thank", "sorry",
	"yes", "wait", "stop", "watch", "listen",
}

// commonWordSet supports the verbatim membership check before fuzzy search.
var commonWordSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(commonWords))
	for _, w := range commonWords {
		set[w] = struct{}{}
	}
	return set
}()
