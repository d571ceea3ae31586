package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"hrkb/internal/core/domain"
)

// headingPatterns is the family of section markers recognized in HR
// documents: enumerated Chinese chapters, Chinese/Arabic/letter list
// numbering and markdown headers.
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^第?[一二三四五六七八九十百]+[章节条][\s、：:].+$`),
	regexp.MustCompile(`^[一二三四五六七八九十]+[、.\s].+$`),
	regexp.MustCompile(`^\d+[.、\s].+$`),
	regexp.MustCompile(`^[A-Z][.、\s].+$`),
	regexp.MustCompile(`^#{1,6}\s+.+$`),
}

var sentenceEnders = []string{"。", "！", "？", "\n"}

// Splitter cuts document text into semantically coherent chunks. Heading
// delimited sections are preferred; documents without any recognizable
// structure fall back to a fixed-size sliding window. Splitting the same
// text with the same settings yields byte-identical chunks and ids.
type Splitter struct {
	MaxSize int
	MinSize int
	Overlap int

	vocab *Vocabulary
}

func NewSplitter(maxSize, minSize, overlap int, vocab *Vocabulary) *Splitter {
	if maxSize <= 0 {
		maxSize = 1200
	}
	if minSize < 0 {
		minSize = 0
	}
	if minSize >= maxSize {
		minSize = maxSize / 4
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 4
	}
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Splitter{
		MaxSize: maxSize,
		MinSize: minSize,
		Overlap: overlap,
		vocab:   vocab,
	}
}

type section struct {
	title string
	body  string
}

func (s *Splitter) Split(text, documentID, department string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sections := identifySections(text)
	if len(sections) == 0 {
		return s.buildChunks(s.windowSplit(text), "", domain.SectionTypeWindow, documentID, department, nil)
	}

	sections = s.mergeSmallSections(sections)

	var chunks []domain.Chunk
	for _, sec := range sections {
		var pieces []string
		if runeLen(sec.body) <= s.MaxSize {
			pieces = []string{sec.body}
		} else {
			pieces = s.splitLargeSection(sec)
		}
		chunks = append(chunks, s.buildChunks(pieces, sec.title, domain.SectionTypeHeading, documentID, department, chunks)...)
	}
	return chunks
}

// identifySections walks the text line by line. A heading starts a new
// section and always stays attached to the body that follows it; content
// before the first heading becomes an untitled preamble section.
func identifySections(text string) []section {
	lines := strings.Split(text, "\n")

	var sections []section
	var title string
	var body []string
	sawHeading := false

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if title != "" {
			content = strings.TrimSpace(title + "\n" + content)
		}
		if content != "" {
			sections = append(sections, section{title: title, body: content})
		}
		body = body[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(body) > 0 {
				body = append(body, "")
			}
			continue
		}
		if isHeadingLine(trimmed) {
			flush()
			title = trimmed
			sawHeading = true
			continue
		}
		body = append(body, trimmed)
	}
	flush()

	if !sawHeading {
		return nil
	}
	return sections
}

func isHeadingLine(line string) bool {
	for _, pattern := range headingPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// mergeSmallSections folds sections below MinSize into the following
// section; the final section merges backward instead.
func (s *Splitter) mergeSmallSections(sections []section) []section {
	if s.MinSize <= 0 || len(sections) < 2 {
		return sections
	}

	out := make([]section, 0, len(sections))
	for i := 0; i < len(sections); i++ {
		sec := sections[i]
		for runeLen(sec.body) < s.MinSize && i+1 < len(sections) {
			next := sections[i+1]
			sec.body = sec.body + "\n\n" + next.body
			if sec.title == "" {
				sec.title = next.title
			}
			i++
		}
		out = append(out, sec)
	}

	if len(out) >= 2 {
		last := out[len(out)-1]
		if runeLen(last.body) < s.MinSize {
			prev := out[len(out)-2]
			prev.body = prev.body + "\n\n" + last.body
			out = append(out[:len(out)-2], prev)
		}
	}
	return out
}

// splitLargeSection cuts an oversized section at paragraph boundaries,
// carrying Overlap runes of sentence-aligned tail text into the next
// piece and repeating the section title so no piece loses its context.
func (s *Splitter) splitLargeSection(sec section) []string {
	prefix := ""
	if sec.title != "" {
		prefix = "【" + sec.title + "】\n\n"
	}

	body := sec.body
	if sec.title != "" {
		body = strings.TrimSpace(strings.TrimPrefix(body, sec.title))
	}

	paragraphs := splitParagraphs(body)

	var pieces []string
	current := prefix
	for _, para := range paragraphs {
		for _, part := range s.breakLongParagraph(para) {
			if runeLen(current)+runeLen(part)+2 <= s.MaxSize || current == prefix {
				current += part + "\n\n"
				continue
			}
			piece := strings.TrimSpace(current)
			pieces = append(pieces, piece)
			current = prefix + s.overlapTail(piece) + part + "\n\n"
		}
	}
	if piece := strings.TrimSpace(current); piece != "" && piece != strings.TrimSpace(prefix) {
		pieces = append(pieces, piece)
	}
	return pieces
}

// breakLongParagraph splits a paragraph that alone exceeds MaxSize at
// sentence boundaries, hard-cutting only as a last resort.
func (s *Splitter) breakLongParagraph(para string) []string {
	if runeLen(para) <= s.MaxSize {
		return []string{para}
	}

	sentences := splitSentences(para)
	var parts []string
	var current strings.Builder
	for _, sentence := range sentences {
		if runeLen(sentence) > s.MaxSize {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			parts = append(parts, hardCut(sentence, s.MaxSize)...)
			continue
		}
		if runeLen(current.String())+runeLen(sentence) > s.MaxSize && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// overlapTail takes the last Overlap runes of a piece, trimmed forward to
// the next sentence start so the carried context reads cleanly.
func (s *Splitter) overlapTail(piece string) string {
	if s.Overlap <= 0 {
		return ""
	}
	runes := []rune(piece)
	if len(runes) <= s.Overlap {
		return piece + "\n"
	}
	tail := string(runes[len(runes)-s.Overlap:])

	cut := 0
	for _, ender := range sentenceEnders {
		if idx := strings.Index(tail, ender); idx >= 0 && idx+len(ender) > cut {
			cut = idx + len(ender)
		}
	}
	if cut > 0 && cut < len(tail) {
		tail = tail[cut:]
	}
	tail = strings.TrimSpace(tail)
	if tail == "" {
		return ""
	}
	return tail + "\n"
}

// windowSplit is the structureless fallback: fixed-size sliding window
// with the configured overlap.
func (s *Splitter) windowSplit(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	step := s.MaxSize - s.Overlap
	if step <= 0 {
		step = s.MaxSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.MaxSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func (s *Splitter) buildChunks(
	pieces []string,
	sectionTitle string,
	sectionType domain.SectionType,
	documentID, department string,
	existing []domain.Chunk,
) []domain.Chunk {
	base := len(existing)
	out := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		ordinal := base + i
		title := sectionTitle
		if title == "" {
			title = firstNonEmptyLine(piece)
		}
		out = append(out, domain.Chunk{
			ID:           chunkID(documentID, ordinal, piece),
			DocumentID:   documentID,
			Department:   department,
			Ordinal:      ordinal,
			Text:         piece,
			SectionTitle: title,
			SectionType:  sectionType,
			Keywords:     s.vocab.Extract(piece),
		})
	}
	return out
}

// chunkID derives a stable id from the document, position and content, so
// re-chunking identical input reproduces identical ids.
func chunkID(documentID string, ordinal int, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", documentID, ordinal, text)))
	return hex.EncodeToString(sum[:16])
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		switch r {
		case '。', '！', '？', '；', '!', '?', ';':
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

func hardCut(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return strings.Trim(trimmed, "【】")
		}
	}
	return ""
}

func runeLen(s string) int {
	return len([]rune(s))
}
