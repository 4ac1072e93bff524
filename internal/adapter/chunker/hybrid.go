// Package chunker splits normalized regulatory text into narrative and table
// chunks. Table regions delimited by the normalizer are authoritative chunk
// boundaries; narrative text is accumulated sentence by sentence with a
// sliding-window overlap, and legal-citation markers force a fresh chunk.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"regrag/internal/domain"
	"regrag/internal/port"
)

// NotRelevantSentinel is the model reply that drops a summarized table
// instead of emitting it as a chunk.
const NotRelevantSentinel = "N/A"

const tableSummarySystemPrompt = `Eres un analista del sector alimentario. Resume la información de la tabla que se te entrega, conservando cifras y unidades. Si la tabla no contiene información relevante para la reglamentación alimentaria responde exactamente "N/A" y nada más.`

var (
	tableRegion = regexp.MustCompile(`(?s)\[TABLE START\](.*?)\[TABLE END\]`)
	sectionTag  = regexp.MustCompile(`### (.+?) ###`)
	sentenceEnd = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// citationMarkers open semantically independent legal provisions. A sentence
// starting with one of these never continues a prior buffer. Case-sensitive
// prefix match.
var citationMarkers = []string{"Artículo", "Resolución", "RESOLUCION"}

// HybridChunker implements port.Chunker for normalized, annotated text.
type HybridChunker struct {
	maxChunkSize int
	minChunkSize int
	overlap      int
	summarizer   port.LLM // optional; nil keeps raw table content
}

// New creates a hybrid chunker. summarizer may be nil, in which case table
// chunks carry the raw delimited content and the chunker is fully
// deterministic for a fixed input and parameters.
func New(maxChunkSize, minChunkSize, overlap int, summarizer port.LLM) *HybridChunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if minChunkSize < 0 {
		minChunkSize = 0
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = 0
	}
	return &HybridChunker{
		maxChunkSize: maxChunkSize,
		minChunkSize: minChunkSize,
		overlap:      overlap,
		summarizer:   summarizer,
	}
}

// Chunk splits one normalized document into chunks. The text is partitioned
// on table regions; narrative stretches between them share one running
// sentence buffer so table placement never fragments surrounding prose
// beyond the forced flush at each table boundary.
func (c *HybridChunker) Chunk(ctx context.Context, doc domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, &domain.ChunkingError{SourceFile: doc.SourceFile, Err: fmt.Errorf("empty document")}
	}

	st := &chunkState{chunker: c, doc: doc}

	last := 0
	for _, m := range tableRegion.FindAllStringSubmatchIndex(doc.Content, -1) {
		st.narrative(doc.Content[last:m[0]])
		st.flush()
		if err := st.table(ctx, doc.Content[m[2]:m[3]]); err != nil {
			return nil, err
		}
		last = m[1]
	}
	st.narrative(doc.Content[last:])
	st.flush()

	// Tables the extractor pulled out separately, not present in the text.
	for _, raw := range doc.Tables {
		if err := st.table(ctx, raw); err != nil {
			return nil, err
		}
	}

	return st.chunks, nil
}

type chunkState struct {
	chunker *HybridChunker
	doc     domain.Document
	section string
	buffer  string
	chunks  []domain.Chunk
}

// narrative feeds a table-free stretch of text into the sentence buffer.
// Section tags update the running label and are stripped from chunk content.
func (s *chunkState) narrative(text string) {
	segStart := 0
	for _, tag := range sectionTag.FindAllStringSubmatchIndex(text, -1) {
		s.sentences(text[segStart:tag[0]])
		s.section = strings.TrimSpace(text[tag[2]:tag[3]])
		segStart = tag[1]
	}
	s.sentences(text[segStart:])
}

func (s *chunkState) sentences(text string) {
	for _, sentence := range splitSentences(text) {
		if startsProvision(sentence) {
			// Legal provisions start their own chunk, with no overlap seed
			// from preceding text.
			s.flush()
			s.buffer = sentence
			continue
		}
		if s.buffer == "" {
			s.buffer = sentence
			continue
		}
		if len(s.buffer)+1+len(sentence) > s.chunker.maxChunkSize {
			tail := overlapTail(s.buffer, s.chunker.overlap)
			s.flush()
			if tail != "" {
				s.buffer = tail + " " + sentence
			} else {
				s.buffer = sentence
			}
			continue
		}
		s.buffer += " " + sentence
	}
}

// flush emits the accumulated narrative buffer as a chunk, discarding it when
// below the minimum size.
func (s *chunkState) flush() {
	content := strings.TrimSpace(s.buffer)
	s.buffer = ""
	if len(content) < s.chunker.minChunkSize || content == "" {
		return
	}
	s.emit(content, domain.ChunkNarrative)
}

func (s *chunkState) table(ctx context.Context, raw string) error {
	content := strings.TrimSpace(raw)
	if content == "" {
		return nil
	}
	if s.chunker.summarizer != nil {
		summary, err := s.chunker.summarizer.GenerateWithSystem(ctx, tableSummarySystemPrompt, content)
		if err != nil {
			return &domain.ChunkingError{SourceFile: s.doc.SourceFile, Err: fmt.Errorf("table summarization: %w", err)}
		}
		summary = strings.TrimSpace(summary)
		if summary == NotRelevantSentinel {
			return nil
		}
		content = summary
	}
	if len(content) < s.chunker.minChunkSize {
		return nil
	}
	s.emit(content, domain.ChunkTable)
	return nil
}

func (s *chunkState) emit(content string, kind domain.ChunkType) {
	s.chunks = append(s.chunks, domain.Chunk{
		Content:       content,
		Type:          kind,
		SourceFile:    s.doc.SourceFile,
		Section:       s.section,
		ContentLength: len(content),
	})
}

// splitSentences tokenizes text into sentences on terminal punctuation,
// keeping any trailing fragment without a terminator.
func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, m := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[m[0]:m[1]]); s != "" {
			out = append(out, s)
		}
		last = m[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func startsProvision(sentence string) bool {
	for _, marker := range citationMarkers {
		if strings.HasPrefix(sentence, marker) {
			return true
		}
	}
	return false
}

// overlapTail returns the trailing n characters of the previous buffer used
// to seed the next one, aligned to a word boundary.
func overlapTail(buffer string, n int) string {
	if n <= 0 || buffer == "" {
		return ""
	}
	runes := []rune(buffer)
	if len(runes) <= n {
		return buffer
	}
	tail := string(runes[len(runes)-n:])
	if i := strings.IndexByte(tail, ' '); i >= 0 {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}
