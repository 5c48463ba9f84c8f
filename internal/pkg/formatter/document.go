package formatter

import (
	"fmt"
	"strings"

	"github.com/futig/omnistudy/internal/entity"
)

const defaultTitle = "OmniStudy"

// Document is the format-neutral shape of an exported message
type Document struct {
	Title    string
	Sections []Section
}

type Section struct {
	Heading    string
	Paragraphs []string
	Bullets    []string
}

// OptionLetter maps option index 0..n to A..
func OptionLetter(i int) string {
	return string(rune('A' + i))
}

// FromMessage builds an export document from an assistant message
func FromMessage(msg entity.Message) Document {
	switch msg.Kind {
	case entity.KindQuiz:
		if msg.Quiz != nil {
			return fromQuiz(msg.Quiz)
		}
	case entity.KindPlan:
		if msg.Plan != nil {
			return fromStudyPlan(msg.Plan)
		}
	case entity.KindSummary:
		if msg.Summary != nil {
			return fromSummary(msg.Summary)
		}
	}
	return fromText(msg.Content, msg.Sources)
}

func fromQuiz(q *entity.Quiz) Document {
	doc := Document{Title: titleOr(q.Title)}
	for i, question := range q.Questions {
		options := make([]string, len(question.Options))
		for j, opt := range question.Options {
			options[j] = fmt.Sprintf("%s. %s", OptionLetter(j), opt)
		}

		answer := fmt.Sprintf("Answer: %s. %s", OptionLetter(question.CorrectAnswer), question.Options[question.CorrectAnswer])
		paragraphs := []string{answer}
		if question.Explanation != "" {
			paragraphs = append(paragraphs, question.Explanation)
		}

		doc.Sections = append(doc.Sections, Section{
			Heading:    fmt.Sprintf("%d. %s", i+1, question.Question),
			Bullets:    options,
			Paragraphs: paragraphs,
		})
	}
	return doc
}

func fromStudyPlan(p *entity.StudyPlan) Document {
	doc := Document{Title: titleOr(p.Title)}
	for _, item := range p.Items {
		doc.Sections = append(doc.Sections, Section{
			Heading:    fmt.Sprintf("%s (%s)", item.Topic, item.Duration),
			Paragraphs: []string{item.Description},
			Bullets:    item.Resources,
		})
	}
	return doc
}

func fromSummary(s *entity.Summary) Document {
	doc := Document{
		Title: "Summary",
		Sections: []Section{
			{Heading: "Main point", Paragraphs: []string{s.MainPoint}},
			{Heading: "Key takeaways", Bullets: s.Takeaways},
		},
	}
	if s.Context != nil && *s.Context != "" {
		doc.Sections = append(doc.Sections, Section{Heading: "Context", Paragraphs: []string{*s.Context}})
	}
	return doc
}

func fromText(text string, sources []entity.Source) Document {
	doc := Document{
		Title:    defaultTitle,
		Sections: []Section{{Paragraphs: splitParagraphs(text)}},
	}
	if len(sources) > 0 {
		refs := make([]string, len(sources))
		for i, s := range sources {
			refs[i] = fmt.Sprintf("%s: %s", s.Title, s.URI)
		}
		doc.Sections = append(doc.Sections, Section{Heading: "Sources", Bullets: refs})
	}
	return doc
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.TrimSpace(text), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func titleOr(title string) string {
	if strings.TrimSpace(title) == "" {
		return defaultTitle
	}
	return title
}
