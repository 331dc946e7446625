package vocabulary

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

// Load reads a vocabulary file. Sections missing from the file keep their
// built-in values; an empty path yields the built-in vocabulary.
func Load(path string) (domain.Vocabulary, error) {
	if strings.TrimSpace(path) == "" {
		return domain.DefaultVocabulary(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (domain.Vocabulary, error) {
	vocab := domain.DefaultVocabulary()

	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&vocab); err != nil && !errors.Is(err, io.EOF) {
		return domain.Vocabulary{}, domain.WrapError(domain.ErrInvalidInput, "decode vocabulary", err)
	}
	if err := validate(vocab); err != nil {
		return domain.Vocabulary{}, domain.WrapError(domain.ErrInvalidInput, "validate vocabulary", err)
	}
	return vocab, nil
}

func validate(vocab domain.Vocabulary) error {
	for i, rule := range vocab.Synonyms {
		if strings.TrimSpace(rule.Informal) == "" || strings.TrimSpace(rule.Formal) == "" {
			return fmt.Errorf("synonym %d needs informal and formal terms", i)
		}
	}
	for _, cluster := range vocab.Clusters {
		if len(cluster.Triggers) == 0 || len(cluster.Terms) == 0 {
			return fmt.Errorf("cluster %q needs triggers and terms", cluster.Name)
		}
	}
	return nil
}
