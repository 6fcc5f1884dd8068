// Package samples embeds the demo corpus: monitored messages that simulate
// compliance incidents and the compliance clause library they are checked
// against.
package samples

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/SamuelRCrider/legal-auditor/store"
)

//go:embed documents.yaml
var documentsYAML []byte

//go:embed policies.yaml
var policiesYAML []byte

type sampleDocument struct {
	Content     string `yaml:"content"`
	Source      string `yaml:"source"`
	Channel     string `yaml:"channel"`
	Author      string `yaml:"author"`
	AuthorEmail string `yaml:"author_email"`
}

// Documents returns the sample messages. Timestamps are left zero so the
// ingesting side stamps them.
func Documents() ([]store.Document, error) {
	var file struct {
		Documents []sampleDocument `yaml:"documents"`
	}
	if err := yaml.Unmarshal(documentsYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sample documents: %w", err)
	}

	docs := make([]store.Document, 0, len(file.Documents))
	for _, d := range file.Documents {
		docs = append(docs, store.Document{
			Content:     d.Content,
			Source:      d.Source,
			Channel:     d.Channel,
			Author:      d.Author,
			AuthorEmail: d.AuthorEmail,
		})
	}
	return docs, nil
}

// Policies returns the compliance clause library
func Policies() ([]store.PolicyClause, error) {
	var file struct {
		Policies []store.PolicyClause `yaml:"policies"`
	}
	if err := yaml.Unmarshal(policiesYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sample policies: %w", err)
	}
	return file.Policies, nil
}
