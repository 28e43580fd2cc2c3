package gather

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/altiore-conseil/veille-cli/internal/fetchtext"
	"github.com/altiore-conseil/veille-cli/internal/model"
)

// snippetBudget bounds a single news snippet after markup stripping.
const snippetBudget = 300

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

// parseNewsFeed decodes an RSS feed and returns at most maxItems news items
// with markup-stripped snippets. News feeds from French sources routinely
// declare ISO-8859 charsets, hence the charset-aware decoder.
func parseNewsFeed(body string, maxItems int) ([]model.NewsItem, error) {
	decoder := xml.NewDecoder(strings.NewReader(body))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "rss: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var feed rssFeed
	if err := decoder.Decode(&feed); err != nil {
		return nil, eris.Wrap(err, "rss: decode feed")
	}

	items := feed.Channel.Items
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	out := make([]model.NewsItem, 0, len(items))
	for _, it := range items {
		out = append(out, model.NewsItem{
			Title:   strings.TrimSpace(fetchtext.StripHTML(it.Title)),
			Link:    strings.TrimSpace(it.Link),
			PubDate: strings.TrimSpace(it.PubDate),
			Snippet: fetchtext.Truncate(fetchtext.StripHTML(it.Description), snippetBudget),
		})
	}
	return out, nil
}
