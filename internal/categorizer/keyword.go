package categorizer

import (
	"context"
	"regexp"
	"strings"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/textutils"
)

// keywordRule maps a multi-language keyword pattern to a category.
type keywordRule struct {
	category string
	pattern  *regexp.Regexp
}

func rule(category, expr string) keywordRule {
	return keywordRule{category: category, pattern: regexp.MustCompile(`(?i)` + expr)}
}

// expenseRules are evaluated in order against "detail concept"; the first hit wins.
var expenseRules = []keywordRule{
	rule(models.CategoryDining, `restaur|cedasa|bar|bodega|pizzer|pasta|comida|food|mcdonald|burger|cafe|café|pizzeria|taverna|mesón|meson|churrer|pasteler|confiter|snack|viena|cena|comer|almuerzo|desayuno|establecimientos|establiments|borda|fragments|catalina|el bar|tragar|alicer|bernard|bistrot|delices|meroil|brioche|sushi|shop|critérium`),
	rule(models.CategoryHealth, `farmac|salut|health|4health|hospital|clínica|clinica|medic|dentista|óptica|optica|fisioterapia|psicolog|pharmacie|optique|medical|medic|pharm|artemi|metro`),
	rule(models.CategoryFashion, `zara|h&m|mango|primark|pull&bear|bershka|stradivarius|massimo|dutti|lefties|ropa|moda|tienda|tiendas|fashion|outlet|textil|etam|intimissimi|beau bazar|petite brindill`),
	rule(models.CategoryLeisure, `pokerstars|stars|cine|película|pelicula|teatro|museo|parque|attracción|attraccion|diversión|diversion|ocio|recreo|gaming|juego|videojuego|netflix|spotify|disney|hbo|streaming|booking|hotel|hostel|viaje|viajes|travel|cinemes|carlema`),
	rule(models.CategoryTransport, `aena|aeropuerto|airport|aparcamiento|aparcament|parking|taxi|uber|cabify|transporte|metro|bus|autobús|autobus|renfe|ave|tren|gasolinera|gasolin|repostar|peaje|aparcament auto|estacio|servei|serv|esso|st leger|blablacar`),
	rule(models.CategorySports, `esportiu|deporte|deport|gimnasio|gym|fitness|natación|natacion|piscina|baloncesto|fútbol|futbol|tenis|padel|yoga|pilates|running|centre esportiu`),
	rule(models.CategoryGroceries, `supermerc|mercado|aliment|hipercor|carrefour|alcampo|eroski|mercadona|lidl|aldi|dia|consum|caprabo|condis|bonpreu|el corte inglés|corte ingles|intermarché|intermarche|centre|comercial|cca4|caprabo`),
	rule(models.CategoryUtilities, `telecom|telefonía|telefonia|internet|fibra|wifi|luz|electricidad|gas|agua|suministro|servicio|hosting|hostinger|dominio|cloud`),
	rule(models.CategoryEducation, `coursera|educación|educacion|curso|curs|universidad|colegio|escuela|academia|formación|formacion|aprender|estudio`),
	rule(models.CategoryBanking, `bizum|transfer|transferencia|comisión|comision|custodia|retir|cajero|caixer|reintegr|tarjeta|targeta|domiciliaci|domiciliat|nómina|nomina|versement|prelevements|virement|retrait|prélèvement|bancaire`),
	rule(models.CategoryTechnology, `cursor|google|apple|microsoft|amazon|tecnología|tecnologia|ordenador|pc|portátil|portatil|móvil|movil|tablet|software|hardware|app|aplicación|aplicacion`),
	rule(models.CategoryHome, `ikea|leroy|merlin|bricolage|brico|ferreter|hogar|casa|mueble|decoración|decoracion|electrodoméstico|electrodomestico|electrónica|electronica`),
	rule(models.CategoryBeauty, `perfumería|perfumeria|cosmético|cosmetico|maquillaje|belleza|droguería|drogueria`),
}

// Income keywords. Salary words are looked for in both concept and detail;
// "nòmina" with its accent only in the concept, as statements print it there.
var (
	salaryConceptWords = []string{"nòmina", "nomina", "paie"}
	salaryDetailWords  = []string{"nomina", "paie"}
	refundConceptWords = []string{"domiciliat", "domiciliado", "domicilié", "virement"}
)

// RulesCategory applies the income keywords or the ordered expense rules.
// matched is false when an expense fell through to CategoryOther.
func RulesCategory(tx models.Transaction) (category string, matched bool) {
	concept := strings.ToLower(tx.Concept)
	detail := strings.ToLower(tx.Description)

	if tx.IsIncome() {
		switch {
		case textutils.ContainsAny(concept, salaryConceptWords...) || textutils.ContainsAny(detail, salaryDetailWords...):
			return models.CategorySalary, true
		case textutils.ContainsAny(concept, refundConceptWords...):
			return models.CategoryRefund, true
		}
		return models.CategoryIncome, true
	}

	text := detail + " " + concept
	for _, r := range expenseRules {
		if r.pattern.MatchString(text) {
			return r.category, true
		}
	}
	return models.CategoryOther, false
}

// KeywordStrategy implements categorization with the built-in keyword rules.
type KeywordStrategy struct {
	logger logging.Logger
}

// NewKeywordStrategy creates a new KeywordStrategy instance.
func NewKeywordStrategy(logger logging.Logger) *KeywordStrategy {
	return &KeywordStrategy{logger: logging.OrDefault(logger)}
}

// Name returns the name of this strategy for logging and debugging.
func (s *KeywordStrategy) Name() string {
	return "Keyword"
}

// Categorize applies RulesCategory. An expense no rule matches is a miss.
func (s *KeywordStrategy) Categorize(_ context.Context, tx models.Transaction) (string, bool, error) {
	category, matched := RulesCategory(tx)
	if matched {
		s.logger.WithFields(
			logging.F("strategy", s.Name()),
			logging.F(logging.FieldDescription, tx.Description),
			logging.F(logging.FieldCategory, category),
		).Debug("Transaction categorized using keyword matching")
	}
	return category, matched, nil
}
