package ai

import (
	"strings"
	"text/template"
)

var ideasPrompt = template.Must(template.New("ideas").Parse(
	`You are a blog post idea generator. Generate {{.Count}} blog post ideas and outlines based on the following topic and keywords.

Topic: {{.Topic}}
Keywords: {{.Keywords}}

Return exactly {{.Count}} ideas and {{.Count}} outlines. The outline at each position belongs to the idea at the same position.
`))

var rephrasePrompt = template.Must(template.New("rephrase").Parse(
	`You are an expert content editor and writing assistant.
Your task is to take a piece of text and not only rephrase it to be more clear, concise, and engaging, but also to format it as a well-structured block of HTML suitable for a blog post.

- Use HTML tags like <h2>, <h3>, <p>, <ul>, <li>, <strong>, and <em> to structure the content.
- Break down long paragraphs into smaller, more readable ones.
- Use headings to create a clear hierarchy.
- Use bold or italic tags to emphasize key points.
- If the text contains a sequence of items, format them as an unordered list (<ul>).
- Do not use <body> or <html> tags. The output should be a snippet of HTML that can be inserted directly into an existing document.

Original Text:
{{.Text}}

Rephrased and Formatted HTML:
`))

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
