package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/docmirror"
	"google.golang.org/genai"
)

// DefaultContextResults is how many search results an answer is grounded
// on when SearchOptions.Limit is zero.
const DefaultContextResults = 8

var _ docmirror.Asker = (*Asker)(nil)

// Asker implements docmirror.Asker by retrieving chunks through a search
// service and asking Gemini to answer from them.
type Asker struct {
	client *genai.Client
	search docmirror.SearchService

	// Model is the generation model. Defaults to DefaultGenerationModel.
	Model string
}

// NewAsker creates a new Asker.
func NewAsker(client *genai.Client, search docmirror.SearchService) *Asker {
	return &Asker{client: client, search: search, Model: DefaultGenerationModel}
}

// Ask implements docmirror.Asker.
func (a *Asker) Ask(ctx context.Context, question string, opts docmirror.SearchOptions) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", docmirror.Errorf(docmirror.EINVALID, "question required")
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultContextResults
	}

	results, err := a.search.Search(ctx, question, opts)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", docmirror.Errorf(docmirror.ENOTFOUND, "no indexed documentation matches %q", question)
	}

	result, err := a.client.Models.GenerateContent(ctx, a.Model,
		[]*genai.Content{genai.NewContentFromText(BuildUserPrompt(results, question), genai.RoleUser)},
		BuildConfig(),
	)
	if err != nil {
		return "", classify("generate answer", err)
	}
	if result == nil {
		return "", docmirror.Errorf(docmirror.EINTERNAL, "gemini returned nil result")
	}
	return result.Text(), nil
}

// BuildConfig returns the GenerateContentConfig for answer generation.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You answer questions about software documentation using only the excerpts provided. " +
					"Cite the excerpt URLs you relied on. If the excerpts do not contain the answer, say so.",
			}},
		},
		Temperature: &temp,
	}
}

// BuildUserPrompt lays out the retrieved excerpts followed by the question.
func BuildUserPrompt(results []docmirror.SearchResult, question string) string {
	var sb strings.Builder
	sb.WriteString("<excerpts>\n")
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		if r.Heading != "" {
			title += " > " + r.Heading
		}
		sb.WriteString("<excerpt>\n")
		fmt.Fprintf(&sb, "<index>%d</index>\n", i+1)
		fmt.Fprintf(&sb, "<source>%s</source>\n", r.SourceName)
		fmt.Fprintf(&sb, "<title>%s</title>\n", title)
		fmt.Fprintf(&sb, "<url>%s</url>\n", r.URL)
		fmt.Fprintf(&sb, "<content>%s</content>\n", r.Snippet)
		sb.WriteString("</excerpt>\n")
	}
	sb.WriteString("</excerpts>\n\n")
	fmt.Fprintf(&sb, "Question: %s", question)
	return sb.String()
}
