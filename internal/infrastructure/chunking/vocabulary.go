package chunking

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary is the HR domain word list used for chunk keyword extraction
// and query term normalization. Each group maps a canonical term to its
// synonyms; matching is lexical containment, case and width insensitive.
type Vocabulary struct {
	Groups map[string][]string `yaml:"groups"`
}

// DefaultVocabulary covers the HR categories the corpus is built around.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{Groups: map[string][]string{
		"薪资": {"薪资", "工资", "薪酬", "奖金", "津贴", "补贴", "薪水"},
		"考勤": {"考勤", "打卡", "请假", "休假", "迟到", "早退", "出勤"},
		"培训": {"培训", "学习", "发展", "课程", "培训计划"},
		"入职": {"入职", "新员工", "报到", "入职手续", "试用期"},
		"离职": {"离职", "辞职", "退休", "离职手续", "离职流程"},
		"福利": {"福利", "待遇", "福利待遇", "社保", "公积金", "五险一金"},
		"绩效": {"绩效", "考核", "评估", "考评", "KPI"},
		"招聘": {"招聘", "面试", "录用", "招聘流程"},
	}}
}

// LoadVocabulary reads a YAML vocabulary file, falling back to the default
// set when the path is empty or missing.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultVocabulary(), nil
		}
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("parse vocabulary yaml: %w", err)
	}
	if len(vocab.Groups) == 0 {
		return DefaultVocabulary(), nil
	}
	return &vocab, nil
}

// Extract returns the sorted set of vocabulary words contained in text.
func (v *Vocabulary) Extract(text string) []string {
	if text == "" {
		return nil
	}
	folded := foldText(text)

	seen := make(map[string]struct{})
	for _, words := range v.Groups {
		for _, word := range words {
			if word == "" {
				continue
			}
			if strings.Contains(folded, foldText(word)) {
				seen[word] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for word := range seen {
		out = append(out, word)
	}
	sort.Strings(out)
	return out
}

// Normalize rewrites synonyms in a query to their canonical group term so
// sparse retrieval sees consistent terminology.
func (v *Vocabulary) Normalize(query string) string {
	if query == "" {
		return query
	}
	canonicals := make([]string, 0, len(v.Groups))
	for canonical := range v.Groups {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	out := query
	for _, canonical := range canonicals {
		for _, word := range v.Groups[canonical] {
			if word == "" || word == canonical {
				continue
			}
			out = strings.ReplaceAll(out, word, canonical)
		}
	}
	return out
}

// foldText lowercases ASCII and maps full-width forms to their half-width
// equivalents so 「ＫＰＩ」 matches "kpi".
func foldText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0xFF01 && r <= 0xFF5E:
			r = r - 0xFF01 + '!'
		case r == 0x3000:
			r = ' '
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
