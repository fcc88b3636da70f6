package domain

// AreaOther is the label used whenever classification cannot produce one.
const AreaOther = "Outro"

// SuggestedAreas is the taxonomy offered to the model. It is not enforced:
// area is stored as free text.
var SuggestedAreas = []string{
	"Direito de Família",
	"Direito Penal",
	"Direito Civil",
	"Direito Trabalhista",
	"Direito Previdenciário",
	"Direito Tributário",
	"Direito Empresarial",
	AreaOther,
}

// Classification is the enrichment produced for a ticket text by one
// classification call.
type Classification struct {
	Area        string `json:"area"`
	Summary     string `json:"summary"`
	Explanation string `json:"explanation"`
	AnswerIA    string `json:"answerIA"`
}

// FallbackClassification is used when the provider fails or answers with
// something that does not match the expected schema.
func FallbackClassification() Classification {
	return Classification{Area: AreaOther}
}

// IsSuggestedArea reports whether area belongs to the suggested taxonomy.
func IsSuggestedArea(area string) bool {
	for _, candidate := range SuggestedAreas {
		if candidate == area {
			return true
		}
	}
	return false
}
