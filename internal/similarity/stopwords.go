package similarity

// stopWords lists articles, auxiliary verbs, and common conjunctions and
// prepositions that carry no content signal for similarity comparison.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "but": {}, "nor": {}, "so": {}, "yet": {},
	"if": {}, "then": {}, "else": {}, "when": {}, "while": {},
	"at": {}, "by": {}, "for": {}, "in": {}, "of": {}, "on": {},
	"to": {}, "up": {}, "with": {}, "as": {}, "into": {}, "from": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "am": {},
	"do": {}, "does": {}, "did": {},
	"have": {}, "has": {}, "had": {},
	"will": {}, "would": {}, "can": {}, "could": {},
	"shall": {}, "should": {}, "may": {}, "might": {}, "must": {},
	"this": {}, "that": {}, "it": {}, "its": {}, "not": {},
}
