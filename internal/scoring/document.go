package scoring

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/legaldesk/insights/internal/signals"
	"github.com/legaldesk/insights/internal/storage/models"
	"github.com/legaldesk/insights/pkg/utils"
)

const (
	CategoryLegalDocument   = "legal_document"
	CategoryContract        = "contract"
	CategoryDraftDocument   = "draft_document"
	CategoryGeneralDocument = "general_document"

	DefaultModelVersion = "v1.0"

	maxDocumentConfidence = 0.95
	keywordCount          = 10
)

var legalTerms = []string{
	"contract", "agreement", "legal", "court", "judgment", "plaintiff", "defendant",
	"attorney", "lawyer", "litigation", "settlement", "damages", "liability",
}

var tagTerms = []string{"contract", "agreement", "legal", "court", "case"}

var stopWords = map[string]struct{}{
	"about": {}, "above": {}, "after": {}, "again": {}, "also": {}, "been": {}, "before": {},
	"being": {}, "below": {}, "between": {}, "both": {}, "could": {}, "does": {}, "doing": {},
	"down": {}, "during": {}, "each": {}, "from": {}, "further": {}, "have": {}, "having": {},
	"here": {}, "hereby": {}, "herein": {}, "into": {}, "itself": {}, "just": {}, "more": {},
	"most": {}, "must": {}, "only": {}, "other": {}, "over": {}, "same": {}, "shall": {},
	"should": {}, "some": {}, "such": {}, "than": {}, "that": {}, "their": {}, "them": {},
	"then": {}, "there": {}, "thereof": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "under": {}, "until": {}, "upon": {}, "very": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "will": {}, "with": {}, "would": {},
	"your": {},
}

var whitespace = regexp.MustCompile(`\s+`)

type DocumentMetadata struct {
	FileType   string    `json:"fileType"`
	FileSize   int64     `json:"fileSize"`
	UploadDate time.Time `json:"uploadDate"`
}

type DocumentInput struct {
	DocumentID string
	Content    string
	Metadata   DocumentMetadata
}

// DocumentFeatures is what classification is decided on.
type DocumentFeatures struct {
	WordCount     int      `json:"wordCount"`
	HasLegalTerms bool     `json:"hasLegalTerms"`
	LegalTerms    []string `json:"legalTerms"`
	Keywords      []string `json:"keywords"`
	ContentHash   string   `json:"contentHash"`
}

type ClassificationWriter interface {
	UpsertClassification(ctx context.Context, rec models.ClassificationRecord) error
}

type DocumentClassifier struct {
	writer  ClassificationWriter
	now     signals.Clock
	version string
}

func NewDocumentClassifier(writer ClassificationWriter, now signals.Clock, modelVersion string) *DocumentClassifier {
	if modelVersion == "" {
		modelVersion = DefaultModelVersion
	}
	return &DocumentClassifier{writer: writer, now: clockOrNow(now), version: modelVersion}
}

var _ Scorer[DocumentInput, DocumentClassification] = (*DocumentClassifier)(nil)

func (c *DocumentClassifier) Score(ctx context.Context, in DocumentInput) (DocumentClassification, error) {
	if in.DocumentID == "" {
		return DocumentClassification{}, fmt.Errorf("document id is required")
	}

	text := in.Content
	if isHTML(in.Metadata.FileType) {
		text = cleanHTML(text)
	}

	features := ExtractFeatures(text)
	category := classify(features, in.Metadata.FileType)
	confidence := documentConfidence(features, category)
	tags := documentTags(category, text)
	now := c.now()

	metadata := map[string]any{
		"features":     features,
		"fileType":     in.Metadata.FileType,
		"fileSize":     in.Metadata.FileSize,
		"modelVersion": c.version,
	}
	if !in.Metadata.UploadDate.IsZero() {
		metadata["uploadDate"] = in.Metadata.UploadDate
	}

	err := c.writer.UpsertClassification(ctx, models.ClassificationRecord{
		ID:                uuid.NewString(),
		DocumentID:        in.DocumentID,
		PredictedCategory: category,
		Confidence:        confidence,
		Tags:              tags,
		Features:          metadata,
		ModelVersion:      c.version,
		CreatedAt:         now,
	})
	if err != nil {
		return DocumentClassification{}, err
	}

	return DocumentClassification{
		DocumentID:        in.DocumentID,
		PredictedCategory: category,
		Confidence:        confidence,
		Tags:              tags,
		Metadata:          metadata,
		Timestamp:         now,
	}, nil
}

func ExtractFeatures(text string) DocumentFeatures {
	lower := strings.ToLower(text)

	var found []string
	for _, term := range legalTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}

	return DocumentFeatures{
		WordCount:     len(strings.Fields(text)),
		HasLegalTerms: len(found) > 0,
		LegalTerms:    found,
		Keywords:      topKeywords(lower, keywordCount),
		ContentHash:   utils.Fingerprint(text),
	}
}

func classify(f DocumentFeatures, fileType string) string {
	switch ft := strings.ToLower(fileType); {
	case f.HasLegalTerms && f.WordCount > 1000:
		return CategoryLegalDocument
	case ft == "pdf":
		return CategoryContract
	case ft == "doc" || ft == "docx":
		return CategoryDraftDocument
	default:
		return CategoryGeneralDocument
	}
}

func documentConfidence(f DocumentFeatures, category string) float64 {
	c := 0.5
	if f.HasLegalTerms {
		c += 0.2
	}
	if f.WordCount > 500 {
		c += 0.1
	}
	if category == CategoryLegalDocument {
		c += 0.2
	}
	return math.Min(maxDocumentConfidence, roundScore(c))
}

func documentTags(category, text string) []string {
	lower := strings.ToLower(text)
	tags := []string{category}
	seen := map[string]struct{}{category: {}}
	for _, term := range tagTerms {
		if _, ok := seen[term]; ok {
			continue
		}
		if strings.Contains(lower, term) {
			seen[term] = struct{}{}
			tags = append(tags, term)
		}
	}
	return tags
}

// topKeywords ranks tokens longer than three characters by frequency, ties
// going to the token seen first.
func topKeywords(lower string, n int) []string {
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	counts := make(map[string]int)
	var order []string
	for _, tok := range tokens {
		if len([]rune(tok)) <= 3 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, ok := counts[tok]; !ok {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func isHTML(fileType string) bool {
	switch strings.ToLower(fileType) {
	case "html", "htm":
		return true
	default:
		return false
	}
}

func cleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
