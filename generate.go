package resumepdf

import (
	"context"
	"fmt"
	"strings"
)

// Section is one free-form block of the resume, such as "Experience".
type Section struct {
	Header  string `yaml:"header" toml:"header" json:"header"`
	Content string `yaml:"content" toml:"content" json:"content"`
}

// ResumeData is the structured input handed to a [Generator].
type ResumeData struct {
	Name         string    `yaml:"name" toml:"name" json:"name"`
	Title        string    `yaml:"title" toml:"title" json:"title"`
	Email        string    `yaml:"email" toml:"email" json:"email"`
	Phone        string    `yaml:"phone" toml:"phone" json:"phone"`
	Sections     []Section `yaml:"sections" toml:"sections" json:"sections"`
	Instructions string    `yaml:"instructions" toml:"instructions" json:"instructions"`
}

// DefaultSections returns the sections a new resume starts with.
func DefaultSections() []Section {
	return []Section{
		{Header: "Experience"},
		{Header: "Studies"},
		{Header: "Technical Skills List"},
	}
}

// Generator produces resume markup from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the [Generator] interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f(ctx, prompt).
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// BuildPrompt renders the generator prompt for data. The reference markup,
// if any, is included as a layout guide only; the generated document must
// carry the data below it.
func BuildPrompt(data ResumeData, reference string) string {
	var b strings.Builder

	b.WriteString("You are an HTML resume generator. Generate only valid HTML (single-file) ")
	b.WriteString("without any explanations or markdown formatting. Use the reference HTML ")
	b.WriteString("structure provided (if any) as the visual/layout guide and fill it with the ")
	b.WriteString("resume data. Do NOT add any extra text or commentary.\n\n")

	b.WriteString("Reference HTML structure (use for guidance only):\n")
	if strings.TrimSpace(reference) == "" {
		b.WriteString("(none)")
	} else {
		b.WriteString(reference)
	}
	b.WriteString("\n\n")

	b.WriteString("Generate a professional A4 HTML resume (single-file) based on the data below.\n")
	b.WriteString("Return ONLY the complete HTML markup (including inline CSS if needed) and nothing ")
	b.WriteString("else. The HTML is rendered and converted to an A4 PDF.\n\n")

	b.WriteString("Personal Info:\n")
	fmt.Fprintf(&b, "- Name: %s\n", data.Name)
	fmt.Fprintf(&b, "- Title: %s\n", data.Title)
	fmt.Fprintf(&b, "- Email: %s\n", data.Email)
	fmt.Fprintf(&b, "- Phone: %s\n\n", data.Phone)

	b.WriteString("Sections:\n")
	for _, s := range data.Sections {
		fmt.Fprintf(&b, "- %s: %s\n", s.Header, s.Content)
	}

	instructions := strings.TrimSpace(data.Instructions)
	if instructions == "" {
		instructions = "None"
	}
	fmt.Fprintf(&b, "\nAdditional Instructions: %s", instructions)
	return b.String()
}

