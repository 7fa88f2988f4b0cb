package legal

import "strings"

// Category describes a legal topic badge.
type Category struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	CSSClass    string `json:"cssClass"`
}

// CategoryAlias binds a lowercase lookup alias to its category.
type CategoryAlias struct {
	Alias    string
	Category Category
}

var (
	contractLaw   = Category{Key: "contract", DisplayName: "Contract Law", CSSClass: "category-contract"}
	employmentLaw = Category{Key: "employment", DisplayName: "Employment Law", CSSClass: "category-employment"}
	intellectual  = Category{Key: "intellectual_property", DisplayName: "Intellectual Property", CSSClass: "category-ip"}
	compliance    = Category{Key: "compliance", DisplayName: "Compliance", CSSClass: "category-compliance"}
	litigation    = Category{Key: "litigation", DisplayName: "Litigation", CSSClass: "category-litigation"}
	corporateLaw  = Category{Key: "corporate", DisplayName: "Corporate Law", CSSClass: "category-corporate"}
	privacyData   = Category{Key: "privacy", DisplayName: "Privacy & Data", CSSClass: "category-privacy"}
	realEstate    = Category{Key: "real_estate", DisplayName: "Real Estate", CSSClass: "category-real_estate"}
)

// categoryAliases is scanned front to back; the first alias found wins.
var categoryAliases = []CategoryAlias{
	{Alias: "contract", Category: contractLaw},
	{Alias: "contract law", Category: contractLaw},
	{Alias: "employment", Category: employmentLaw},
	{Alias: "employment law", Category: employmentLaw},
	{Alias: "intellectual property", Category: intellectual},
	{Alias: "ip", Category: intellectual},
	{Alias: "compliance", Category: compliance},
	{Alias: "litigation", Category: litigation},
	{Alias: "corporate", Category: corporateLaw},
	{Alias: "corporate law", Category: corporateLaw},
	{Alias: "privacy", Category: privacyData},
	{Alias: "privacy & data", Category: privacyData},
	{Alias: "real estate", Category: realEstate},
	{Alias: "real estate law", Category: realEstate},
}

// CategoryAliases returns the alias table in declaration order.
func CategoryAliases() []CategoryAlias {
	return append([]CategoryAlias(nil), categoryAliases...)
}

// MatchCategory returns the category of the first alias contained in text.
// text is expected to be lowercase already.
func MatchCategory(text string) (Category, bool) {
	for _, entry := range categoryAliases {
		if strings.Contains(text, entry.Alias) {
			return entry.Category, true
		}
	}
	return Category{}, false
}
