// Package contentgate decides which static interview questions a role and plan can see.
package contentgate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// bankSchema accepts {"<role>": [{role, tags, question, answer}, ...], ...}.
const bankSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "array",
    "items": {
      "type": "object",
      "required": ["tags", "question"],
      "properties": {
        "role":     {"type": "string"},
        "tags":     {"type": "string", "pattern": "^(?i)(basic|advanced)$"},
        "question": {"type": "string", "minLength": 1},
        "answer":   {"type": "string"}
      }
    }
  }
}`

// Bank is the read-only question set keyed by role, in file order.
type Bank struct {
	keys  []string
	sets  map[string][]models.ContentItem
	total int
}

// LoadBank reads and validates the question file at path.
func LoadBank(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewContentLoadFailedError(path, err)
	}
	defer f.Close()

	bank, err := ParseBank(f)
	if err != nil {
		return nil, errors.NewContentLoadFailedError(path, err)
	}
	return bank, nil
}

// ParseBank decodes a question bank, keeping role keys in the order they appear.
func ParseBank(r io.Reader) (*Bank, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(bankSchema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("question bank is not valid JSON: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return nil, fmt.Errorf("question bank invalid at %s: %s (%d problems)", first.Field(), first.Description(), len(result.Errors()))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	bank := &Bank{sets: map[string][]models.ContentItem{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)

		var items []models.ContentItem
		if err := dec.Decode(&items); err != nil {
			return nil, fmt.Errorf("role %q: %w", key, err)
		}
		if _, seen := bank.sets[key]; !seen {
			bank.keys = append(bank.keys, key)
		} else {
			bank.total -= len(bank.sets[key])
		}
		bank.sets[key] = items
		bank.total += len(items)
	}
	return bank, nil
}

// NewBank builds a bank from already-decoded sets; keys fixes the lookup order.
func NewBank(keys []string, sets map[string][]models.ContentItem) *Bank {
	bank := &Bank{sets: make(map[string][]models.ContentItem, len(sets))}
	for _, k := range keys {
		items, ok := sets[k]
		if !ok {
			continue
		}
		if _, dup := bank.sets[k]; dup {
			continue
		}
		bank.keys = append(bank.keys, k)
		bank.sets[k] = items
		bank.total += len(items)
	}
	return bank
}

// Roles returns the role keys in file order.
func (b *Bank) Roles() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Items returns the set stored under the exact key.
func (b *Bank) Items(key string) []models.ContentItem {
	return b.sets[key]
}

func (b *Bank) Len() int {
	return b.total
}
