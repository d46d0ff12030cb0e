package entity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category classifies both timecard intervals and invoice lines
type Category string

// Category constants
const (
	CategoryWorkedHours        Category = "WORKED_HOURS"        // heures normales / travaillées
	CategoryOvertime           Category = "OVERTIME"            // heures supplémentaires, HS 125/150
	CategoryRTT                Category = "RTT"                 // réduction du temps de travail
	CategoryMealAllowance      Category = "MEAL_ALLOWANCE"      // paniers, repas
	CategoryTransportAllowance Category = "TRANSPORT_ALLOWANCE" // indemnités de trajet / transport
	CategoryBonus              Category = "BONUS"               // 13e mois, IFM, ICCP, primes
	CategoryOther              Category = "OTHER"
)

// TimeCategories are prorated by reported hours
var TimeCategories = []Category{CategoryWorkedHours, CategoryOvertime, CategoryRTT}

// IsTime reports whether the category is measured in hours on timecards
func (c Category) IsTime() bool {
	switch c {
	case CategoryWorkedHours, CategoryOvertime, CategoryRTT:
		return true
	}
	return false
}

// IsAllowance reports whether the category is billed once per worked day
func (c Category) IsAllowance() bool {
	return c == CategoryMealAllowance || c == CategoryTransportAllowance
}

type vocabularyRule struct {
	category Category
	pattern  *regexp.Regexp
}

// Rules are evaluated in order; overtime must be tested before the generic "heure" rule
// and meal before bonus so that "prime de panier" stays an allowance.
var vocabulary = []vocabularyRule{
	{CategoryOvertime, regexp.MustCompile(`suppl|\bhs\s*\d*\b|overtime|majore`)},
	{CategoryRTT, regexp.MustCompile(`\brtt\b`)},
	{CategoryMealAllowance, regexp.MustCompile(`panier|repas|meal|restauration`)},
	{CategoryTransportAllowance, regexp.MustCompile(`transport|trajet|deplacement|kilometr`)},
	{CategoryBonus, regexp.MustCompile(`13\s*(e|eme)\s*mois|treizieme|\bprime|\bifm\b|fin de mission|\biccp\b|conges payes`)},
	{CategoryWorkedHours, regexp.MustCompile(`heure|travail|normal|worked|regular`)},
}

// Classify maps free text (line description, interval type) to a Category.
// Unknown text falls back to CategoryOther.
func Classify(text string) Category {
	folded := Fold(text)
	if folded == "" {
		return CategoryOther
	}
	for _, rule := range vocabulary {
		if rule.pattern.MatchString(folded) {
			return rule.category
		}
	}
	return CategoryOther
}

// TimeCardCategory restricts a classification to the categories a timecard can report
func TimeCardCategory(text string) Category {
	c := Classify(text)
	if c.IsTime() {
		return c
	}
	return CategoryOther
}

// Fold lowercases text and strips diacritics so "Heures Supplémentaires" matches "suppl"
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
