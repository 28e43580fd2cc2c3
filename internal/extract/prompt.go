package extract

import (
	"fmt"
	"strings"

	"github.com/altiore-conseil/veille-cli/internal/model"
)

const systemPrompt = `Tu es un analyste spécialisé dans la détection de signaux d'affaires pour un cabinet de conseil en systèmes d'information (DSI). À partir des éléments fournis sur une entreprise, tu identifies les signaux indiquant un besoin potentiel de services IT/SI et tu les restitues en JSON strict, sans aucun texte hors du JSON.`

const promptTemplate = `Entreprise analysée : %s

%sTypes de signaux admis : %s

--- Extrait du site de l'entreprise ---
%s

--- Actualités récentes ---
%s

--- Résultats de recherche web ---
%s

--- Données registre ---
%s

Réponds uniquement avec un objet JSON de la forme :
{"signaux":[{"type":"<type admis>","label":"<résumé court>","confiance":<0.0-1.0>}],"score_besoin_dsi":<0-100>,"score_urgence":<0-100>,"score_complexite_si":<0-100>,"justification":"<2-3 phrases>"}

Si aucun signal n'est détectable, renvoie "signaux":[] et des scores faibles.`

// frenchStopWords are ignored when deriving an acronym from a company name.
var frenchStopWords = map[string]bool{
	"de": true, "du": true, "des": true, "la": true, "le": true, "les": true,
	"et": true, "en": true, "au": true, "aux": true, "d": true, "l": true,
	"sa": true, "sas": true, "sarl": true, "sasu": true, "groupe": true,
}

// Acronym derives an uppercase acronym from the significant words of a
// company name. Returns "" when fewer than two significant words remain:
// a one-word acronym would only add noise to the news matching.
func Acronym(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '\'' || r == '.'
	})

	var letters []rune
	for _, w := range words {
		lw := strings.ToLower(w)
		if frenchStopWords[lw] || w == "" {
			continue
		}
		letters = append(letters, []rune(strings.ToUpper(w))[0])
	}

	if len(letters) < 2 {
		return ""
	}
	return string(letters)
}

// buildPrompt assembles the extraction prompt from the gathered evidence.
func buildPrompt(companyName string, ev model.RawEvidence, firmo *model.FirmographicData) string {
	var acronymLine string
	if a := Acronym(companyName); a != "" {
		acronymLine = fmt.Sprintf("L'entreprise peut aussi apparaître sous l'acronyme « %s ».\n\n", a)
	}

	types := make([]string, len(model.KnownSignalTypes))
	for i, t := range model.KnownSignalTypes {
		types[i] = string(t)
	}

	return fmt.Sprintf(promptTemplate,
		companyName,
		acronymLine,
		strings.Join(types, ", "),
		orNone(ev.SiteExcerpt),
		formatNews(ev.NewsItems),
		orNone(ev.SearchExcerpt),
		formatFirmographics(firmo),
	)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(aucune donnée)"
	}
	return s
}

// formatNews renders news items as a compact numbered list.
func formatNews(items []model.NewsItem) string {
	if len(items) == 0 {
		return "(aucune donnée)"
	}
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s", i+1, it.Title)
		if it.PubDate != "" {
			fmt.Fprintf(&b, " (%s)", it.PubDate)
		}
		b.WriteString("\n")
		if it.Snippet != "" {
			b.WriteString("   " + it.Snippet + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatFirmographics renders registry data as a compact context block.
func formatFirmographics(f *model.FirmographicData) string {
	if f == nil {
		return "(aucune donnée)"
	}
	var b strings.Builder
	if f.LegalName != "" {
		b.WriteString("Raison sociale : " + f.LegalName + "\n")
	}
	if f.SIREN != "" {
		b.WriteString("SIREN : " + f.SIREN + "\n")
	}
	if f.Revenue > 0 {
		fmt.Fprintf(&b, "Chiffre d'affaires : %.0f € (%d)\n", f.Revenue, f.RevenueYear)
	}
	if f.GrowthPct != 0 {
		fmt.Fprintf(&b, "Croissance CA : %.1f%%\n", f.GrowthPct)
	}
	if f.Headcount > 0 {
		fmt.Fprintf(&b, "Effectif : %d", f.Headcount)
		if f.HeadcountRange != "" {
			fmt.Fprintf(&b, " (tranche %s)", f.HeadcountRange)
		}
		b.WriteString("\n")
	}
	if f.NAFCode != "" {
		b.WriteString("Code NAF : " + f.NAFCode + "\n")
	}
	for _, o := range f.Officers {
		b.WriteString("Dirigeant : " + o.Name)
		if o.Role != "" {
			b.WriteString(" (" + o.Role + ")")
		}
		b.WriteString("\n")
	}
	s := strings.TrimRight(b.String(), "\n")
	if s == "" {
		return "(aucune donnée)"
	}
	return s
}
