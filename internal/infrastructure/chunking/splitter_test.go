package chunking

import (
	"strings"
	"testing"

	"hrkb/internal/core/domain"
)

const structuredDoc = `第一章 考勤管理
员工应按时打卡。迟到三十分钟以上视为旷工。
请假需提前一天申请。

第二章 薪资发放
工资于每月十日发放。奖金按季度考核结果发放。

一、培训安排
新员工入职后参加培训。培训计划由部门制定。
`

func newTestSplitter(maxSize, minSize, overlap int) *Splitter {
	return NewSplitter(maxSize, minSize, overlap, DefaultVocabulary())
}

func TestSplitEmptyInputYieldsNoChunks(t *testing.T) {
	s := newTestSplitter(1200, 300, 100)
	if chunks := s.Split("", "doc-1", "hr"); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
	if chunks := s.Split("   \n\n  ", "doc-1", "hr"); len(chunks) != 0 {
		t.Fatalf("expected no chunks for blank input, got %d", len(chunks))
	}
}

func TestSplitRecognizesHeadingSections(t *testing.T) {
	s := newTestSplitter(1200, 10, 50)
	chunks := s.Split(structuredDoc, "doc-1", "hr")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 section chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.SectionType != domain.SectionTypeHeading {
			t.Fatalf("chunk %d: expected heading section type, got %s", i, chunk.SectionType)
		}
		if chunk.Ordinal != i {
			t.Fatalf("chunk %d: expected ordinal %d, got %d", i, i, chunk.Ordinal)
		}
	}
	if chunks[0].SectionTitle != "第一章 考勤管理" {
		t.Fatalf("unexpected first section title %q", chunks[0].SectionTitle)
	}
	if chunks[2].SectionTitle != "一、培训安排" {
		t.Fatalf("unexpected third section title %q", chunks[2].SectionTitle)
	}
}

func TestSplitHeadingStaysWithBody(t *testing.T) {
	s := newTestSplitter(1200, 10, 50)
	chunks := s.Split(structuredDoc, "doc-1", "hr")
	for _, chunk := range chunks {
		if !strings.HasPrefix(chunk.Text, chunk.SectionTitle) {
			t.Fatalf("chunk does not start with its heading: %q", chunk.Text)
		}
		if strings.Count(chunk.Text, "\n") == 0 {
			t.Fatalf("heading separated from its body: %q", chunk.Text)
		}
	}
}

func TestSplitAttachesKeywords(t *testing.T) {
	s := newTestSplitter(1200, 10, 50)
	chunks := s.Split(structuredDoc, "doc-1", "hr")

	wantKeyword := func(chunk domain.Chunk, word string) {
		t.Helper()
		for _, kw := range chunk.Keywords {
			if kw == word {
				return
			}
		}
		t.Fatalf("expected keyword %q in %v", word, chunk.Keywords)
	}
	wantKeyword(chunks[0], "考勤")
	wantKeyword(chunks[0], "打卡")
	wantKeyword(chunks[1], "工资")
	wantKeyword(chunks[2], "培训")
}

func TestSplitIdempotent(t *testing.T) {
	s := newTestSplitter(1200, 10, 50)
	first := s.Split(structuredDoc, "doc-1", "hr")
	second := s.Split(structuredDoc, "doc-1", "hr")
	if len(first) != len(second) {
		t.Fatalf("chunk count changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("chunk %d id changed: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].Text != second[i].Text {
			t.Fatalf("chunk %d text changed", i)
		}
	}
}

func TestSplitFallsBackToWindowWithoutHeadings(t *testing.T) {
	text := strings.Repeat("员工手册内容，福利与薪资说明。", 60)
	s := newTestSplitter(200, 20, 50)
	chunks := s.Split(text, "doc-2", "hr")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple window chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.SectionType != domain.SectionTypeWindow {
			t.Fatalf("chunk %d: expected window section type, got %s", i, chunk.SectionType)
		}
		if runeLen(chunk.Text) > 200 {
			t.Fatalf("chunk %d exceeds max size: %d runes", i, runeLen(chunk.Text))
		}
	}

	// Adjacent windows must share overlap context.
	for i := 0; i+1 < len(chunks); i++ {
		tail := []rune(chunks[i].Text)
		probe := string(tail[len(tail)-10:])
		if !strings.Contains(chunks[i+1].Text, probe) {
			t.Fatalf("windows %d and %d share no overlap", i, i+1)
		}
	}
}

func TestSplitLargeSectionCarriesTitleAndOverlap(t *testing.T) {
	var b strings.Builder
	b.WriteString("第一章 假期制度\n")
	for i := 0; i < 40; i++ {
		b.WriteString("员工每年享有带薪年假。年假天数按工龄计算。请假应提前申请。\n\n")
	}

	s := newTestSplitter(300, 50, 80)
	chunks := s.Split(b.String(), "doc-3", "hr")
	if len(chunks) < 2 {
		t.Fatalf("expected oversized section to split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.SectionTitle != "第一章 假期制度" {
			t.Fatalf("chunk %d lost section title: %q", i, chunk.SectionTitle)
		}
		if i > 0 && !strings.HasPrefix(chunk.Text, "【第一章 假期制度】") {
			t.Fatalf("continuation chunk %d missing title prefix: %q", i, chunk.Text[:20])
		}
	}
}

func TestSplitMergesSmallSections(t *testing.T) {
	text := "一、简短\n很短。\n\n二、正文\n" + strings.Repeat("这里是足够长的正文内容。", 30)
	s := newTestSplitter(1200, 100, 50)
	chunks := s.Split(text, "doc-4", "hr")
	if len(chunks) != 1 {
		t.Fatalf("expected small section to merge forward, got %d chunks", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "很短") || !strings.Contains(chunks[0].Text, "正文内容") {
		t.Fatalf("merged chunk missing content: %q", chunks[0].Text[:30])
	}
}

func TestVocabularyNormalizeRewritesSynonyms(t *testing.T) {
	vocab := DefaultVocabulary()
	got := vocab.Normalize("辞职流程怎么办理，薪水什么时候发")
	if !strings.Contains(got, "离职") {
		t.Fatalf("expected 辞职 normalized to 离职, got %q", got)
	}
	if !strings.Contains(got, "薪资") {
		t.Fatalf("expected 薪水 normalized to 薪资, got %q", got)
	}
}

func TestVocabularyExtractWidthInsensitive(t *testing.T) {
	vocab := DefaultVocabulary()
	keywords := vocab.Extract("本季度ｋｐｉ考核结果")
	found := false
	for _, kw := range keywords {
		if kw == "KPI" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected full-width kpi to match KPI, got %v", keywords)
	}
}
