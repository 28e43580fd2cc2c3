package fetchtext

import (
	"regexp"
	"strings"
)

var (
	blockRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
		regexp.MustCompile(`(?is)<!--.*?-->`),
	}
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe = regexp.MustCompile(`[ \t]+`)
	nlRe    = regexp.MustCompile(`\n{3,}`)

	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
		"&eacute;", "é",
		"&egrave;", "è",
		"&agrave;", "à",
		"&ccedil;", "ç",
	)
)

// StripHTML removes script/style/svg/iframe blocks, strips tags, decodes
// common entities and collapses whitespace. The result is plaintext suitable
// for prompt assembly.
func StripHTML(html string) string {
	for _, re := range blockRes {
		html = re.ReplaceAllString(html, "")
	}

	html = tagRe.ReplaceAllString(html, " ")
	html = entityReplacer.Replace(html)

	html = spaceRe.ReplaceAllString(html, " ")
	html = nlRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}

// Truncate bounds s to max runes. Multi-byte French text must not be cut
// mid-rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
