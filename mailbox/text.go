package mailbox

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/poiesic/mboxsearch/core"
)

var stripTags = bluemonday.StrictPolicy()

// embeddingInput picks the text embedded for msg: the plain body if present,
// otherwise the HTML body rendered to text. ok is false when msg has no body.
func embeddingInput(msg *core.Message) (text string, ok bool) {
	switch {
	case msg.BodyText != nil:
		return *msg.BodyText, true
	case msg.BodyHTML != nil:
		return htmlToText(*msg.BodyHTML), true
	default:
		return "", false
	}
}

// htmlToText strips markup and collapses whitespace. Markup that renders to
// nothing is returned unchanged so the message still gets an embedding.
func htmlToText(markup string) string {
	text := html.UnescapeString(stripTags.Sanitize(markup))
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return markup
	}
	return text
}
