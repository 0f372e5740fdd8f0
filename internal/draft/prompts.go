// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// outlinePromptTmpl asks the model for a structured outline of section titles.
var outlinePromptTmpl = template.Must(template.New("outline").Parse(`You are a document planning system. Create a detailed outline for a long, professional document on the topic: {{.Topic}}.

Respond with a JSON object containing a "sections" array of section titles, in document order. Output roughly {{.Sections}} titles. Do not include any text outside the JSON object.

Example response:
{"sections": ["Definitions", "Term and Termination", "Limitation of Liability"]}
`))

// sectionPromptTmpl asks the model for the body text of one section.
var sectionPromptTmpl = template.Must(template.New("section").Parse(`Write a comprehensive, professional text for the document section: '{{.Title}}'.

STRICT REQUIREMENTS:
1. Output ONLY the body text for this section.
2. DO NOT include any preamble, intro, or "Here is the text".
3. DO NOT include any signatures, footer notes, metadata, or JSON-like structures.
4. Output raw text only, no markdown code blocks wrapping the content.
5. Be dense, detailed, and formal.
`))

// thinkerPromptTmpl asks for a short reasoning scratchpad, not the answer.
var thinkerPromptTmpl = template.Must(template.New("thinker").Parse(`You are an expert analyst reviewing the document below.
---
{{.Document}}
---
Question: {{.Query}}

STRICT INSTRUCTIONS:
1. Provide an internal reasoning scratchpad of ONLY 3-5 short bullet points.
2. Focus on: Where in the document is the answer? What sections are relevant? What is the core logic for the answer?
3. DO NOT provide the final answer yet.
4. Keep it concise and analytical.
`))

// answerPromptTmpl synthesizes the scratchpad into a final answer.
var answerPromptTmpl = template.Must(template.New("answer").Parse(`Based on the following thought process, provide a professional and concise final answer to the user's query.

Thought Process:
{{.Thoughts}}

User Question: {{.Query}}
`))

func renderOutlinePrompt(topic string, sections int) (string, error) {
	return render(outlinePromptTmpl, struct {
		Topic    string
		Sections int
	}{topic, sections})
}

func renderSectionPrompt(title string) (string, error) {
	return render(sectionPromptTmpl, struct{ Title string }{title})
}

func renderThinkerPrompt(document, query string) (string, error) {
	return render(thinkerPromptTmpl, struct{ Document, Query string }{document, query})
}

func renderAnswerPrompt(thoughts, query string) (string, error) {
	return render(answerPromptTmpl, struct{ Thoughts, Query string }{thoughts, query})
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// outlineResponse is the structured outline returned by the model.
type outlineResponse struct {
	Sections []string `json:"sections"`
}

// parseOutline validates the model's outline response. The model sometimes
// wraps JSON in a markdown code fence; strip it before decoding.
func parseOutline(text string) ([]string, error) {
	trimmed := stripCodeFence(text)

	var resp outlineResponse
	if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
		return nil, fmt.Errorf("parsing outline JSON: %w", err)
	}
	if len(resp.Sections) == 0 {
		return nil, fmt.Errorf("outline has no sections")
	}
	for i, s := range resp.Sections {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("outline section %d is empty", i)
		}
	}
	return resp.Sections, nil
}

// stripCodeFence removes a surrounding ``` fence, with or without a language tag.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.Index(trimmed, "\n"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
