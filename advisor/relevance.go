package advisor

import "github.com/poiesic/tariff/core"

// relevanceCategory maps coarse product vocabulary to the tariff chapter
// prefixes such products are expected to classify under.
type relevanceCategory struct {
	name     string
	keywords []string
	chapters []string
}

var relevanceCategories = []relevanceCategory{
	{
		name: "food_beverage",
		keywords: []string{"juice", "drink", "beverage", "lemonade", "soda", "water",
			"coffee", "tea", "milk", "cheese", "chocolate", "fruit", "vegetable",
			"meat", "fish", "wine", "beer", "cider"},
		chapters: []string{"02", "04", "07", "08", "09", "16", "17", "18", "19", "20", "21", "22"},
	},
	{
		name:     "electronics",
		keywords: []string{"phone", "computer", "device", "electronic", "monitor", "camera", "circuit"},
		chapters: []string{"84", "85", "90"},
	},
	{
		name:     "textiles",
		keywords: []string{"shirt", "pants", "clothing", "apparel", "textile", "fabric", "garment"},
		chapters: []string{"50", "51", "52", "53", "54", "55", "56", "57", "58", "59", "60", "61", "62", "63"},
	},
	{
		name:     "chemicals",
		keywords: []string{"chemical", "acid", "compound", "solvent", "pharmaceutical"},
		chapters: []string{"28", "29", "30", "38"},
	},
	{
		name:     "machinery",
		keywords: []string{"machine", "engine", "pump", "turbine", "drill"},
		chapters: []string{"82", "84", "85"},
	},
	{
		name:     "metals",
		keywords: []string{"steel", "iron", "aluminium", "aluminum", "copper", "metal"},
		chapters: []string{"72", "73", "74", "75", "76", "78", "79", "80", "81", "82", "83"},
	},
	{
		name:     "vehicles",
		keywords: []string{"car", "vehicle", "bicycle", "truck", "motorcycle", "boat"},
		chapters: []string{"86", "87", "88", "89"},
	},
	{
		name:     "furniture",
		keywords: []string{"furniture", "chair", "table", "lamp", "mattress"},
		chapters: []string{"94"},
	},
	{
		name:     "paper",
		keywords: []string{"paper", "cardboard", "book", "notebook"},
		chapters: []string{"47", "48", "49"},
	},
	{
		name:     "toys",
		keywords: []string{"toy", "game", "puzzle", "doll"},
		chapters: []string{"95"},
	},
}

// Relevance gate ratios. Empirically tuned; tests pin the current behavior.
const (
	chapterMatchRatio = 0.4
	lexicalMatchRatio = 0.3
	relevanceTopN     = 5
)

// CandidatesRelevant reports whether the candidate set plausibly belongs to
// the product described. The description is classified into a coarse
// category and the top candidates are required to mostly fall inside that
// category's expected chapter prefixes. When no category matches, lexical
// overlap between description and candidate text is required instead. This
// gate decides whether a conclusion may ever be accepted.
func CandidatesRelevant(description string, candidates []core.Candidate) bool {
	if len(candidates) == 0 {
		return false
	}

	top := candidates
	if len(top) > relevanceTopN {
		top = top[:relevanceTopN]
	}

	descTerms := make(map[string]bool)
	for _, term := range significantTerms(description) {
		descTerms[term] = true
	}

	if chapters := expectedChapters(descTerms); len(chapters) > 0 {
		matched := 0
		for _, c := range top {
			if len(c.Code) >= 2 && chapters[c.Code[:2]] {
				matched++
			}
		}
		return float64(matched)/float64(len(top)) >= chapterMatchRatio
	}

	// No recognizable category; fall back to lexical overlap.
	overlapping := 0
	for _, c := range top {
		for _, term := range significantTerms(c.Description) {
			if descTerms[term] {
				overlapping++
				break
			}
		}
	}
	return float64(overlapping)/float64(len(top)) >= lexicalMatchRatio
}

// expectedChapters collects the chapter prefixes of every category whose
// vocabulary intersects the description terms.
func expectedChapters(descTerms map[string]bool) map[string]bool {
	chapters := make(map[string]bool)
	for _, category := range relevanceCategories {
		for _, keyword := range category.keywords {
			if descTerms[keyword] || descTerms[keyword+"s"] {
				for _, ch := range category.chapters {
					chapters[ch] = true
				}
				break
			}
		}
	}
	return chapters
}
